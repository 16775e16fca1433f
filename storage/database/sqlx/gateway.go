package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/importer"
	"github.com/trezcool/gradebook/core/student"
)

const (
	offeringQuery = `
SELECT mc.id, mc.curso_id, m.nombre, COALESCE(m.codigo, '') AS codigo
FROM materias_por_curso mc
JOIN materias m ON m.id = mc.materia_id`

	// active enrollees of the offering's course, plus students actively retaking the offering
	candidatesQuery = `
SELECT u.id, u.nombre, u.apellido, COALESCE(u.dni, '') AS dni, FALSE AS recursando
FROM usuarios u
JOIN matriculas mt ON mt.estudiante_id = u.id AND mt.estado = 'activo'
JOIN materias_por_curso mc ON mc.curso_id = mt.curso_id
WHERE mc.id = ? AND u.tipo = 'estudiante'
UNION
SELECT u.id, u.nombre, u.apellido, COALESCE(u.dni, '') AS dni, TRUE AS recursando
FROM usuarios u
JOIN materias_recursado r ON r.estudiante_id = u.id AND r.estado = 'activo'
WHERE r.materia_curso_id = ? AND u.tipo = 'estudiante'
ORDER BY 1`

	gradeQuery = `
SELECT id, estudiante_id, materia_curso_id, ciclo_lectivo_id,
	valoracion_1bim, desempeno_1bim, observaciones_1bim,
	valoracion_3bim, desempeno_3bim, observaciones_3bim,
	valoracion_preliminar_1c, valoracion_preliminar_2c,
	calificacion_final, estado_final, observaciones
FROM calificaciones
WHERE estudiante_id = ? AND materia_curso_id = ? AND ciclo_lectivo_id = ?`
)

var subjectOrdering = []core.DBOrdering{
	{Field: "m.nombre", Ascending: true},
	{Field: "mc.id", Ascending: true},
}

type (
	gateway struct {
		db core.DB
	}

	gatewayTx struct {
		tx core.DBTransactor
	}
)

var (
	_ importer.Gateway   = (*gateway)(nil) // interface compliance check
	_ importer.GatewayTx = (*gatewayTx)(nil)
)

func NewGateway(db core.DB) importer.Gateway {
	return &gateway{db: db}
}

func orderBy(ordering []core.DBOrdering) string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		clauses = append(clauses, ord.String())
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}

func (gw *gateway) Begin(ctx context.Context) (importer.GatewayTx, error) {
	tx, err := gw.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	return &gatewayTx{tx: tx}, nil
}

func (gw *gateway) ListCourseOfferings(ctx context.Context, courseID int) ([]curriculum.Offering, error) {
	offerings := make([]curriculum.Offering, 0)
	q := gw.db.Rebind(offeringQuery + " WHERE mc.curso_id = ?" + orderBy(subjectOrdering))
	if err := gw.db.SelectContext(ctx, &offerings, q, courseID); err != nil {
		return nil, errors.Wrap(err, "selecting course offerings")
	}
	return offerings, nil
}

func (gw *gateway) GetOffering(ctx context.Context, id int) (curriculum.Offering, error) {
	var off curriculum.Offering
	if err := gw.db.GetContext(ctx, &off, gw.db.Rebind(offeringQuery+" WHERE mc.id = ?"), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return off, curriculum.ErrOfferingNotFound
		}
		return off, errors.Wrap(err, "selecting offering")
	}
	return off, nil
}

func (gw *gateway) GetActiveCycle(ctx context.Context) (grade.Cycle, error) {
	var cycle grade.Cycle
	q := gw.db.Rebind("SELECT id, anio, activo FROM ciclos_lectivos WHERE activo = ? ORDER BY anio DESC LIMIT 1")
	if err := gw.db.GetContext(ctx, &cycle, q, true); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cycle, grade.ErrNoActiveCycle
		}
		return cycle, errors.Wrap(err, "selecting active cycle")
	}
	return cycle, nil
}

func (gtx *gatewayTx) Commit() error {
	return gtx.tx.Commit()
}

func (gtx *gatewayTx) Rollback() error {
	return gtx.tx.Rollback()
}

func (gtx *gatewayTx) ListCandidateStudents(ctx context.Context, offeringID int) ([]student.Student, error) {
	students := make([]student.Student, 0)
	if err := gtx.tx.SelectContext(ctx, &students, gtx.tx.Rebind(candidatesQuery), offeringID, offeringID); err != nil {
		return nil, errors.Wrap(err, "selecting candidate students")
	}
	return students, nil
}

func (gtx *gatewayTx) FindExistingGrade(ctx context.Context, key grade.Key) (grade.Grade, error) {
	var g grade.Grade
	err := gtx.tx.GetContext(ctx, &g, gtx.tx.Rebind(gradeQuery), key.StudentID, key.OfferingID, key.CycleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, grade.ErrNotFound
		}
		return g, errors.Wrap(err, "selecting grade")
	}
	return g, nil
}

// columnsOf validates the upsert's columns against the grades table before they are spliced into SQL.
func columnsOf(u grade.Upsert) ([]string, []interface{}, error) {
	fields := u.Fields()
	columns := make([]string, 0, len(fields))
	values := make([]interface{}, 0, len(fields))
	for _, f := range fields {
		if !grade.IsColumn(f.Column) {
			return nil, nil, errors.Wrapf(grade.ErrUnknownColumn, "%q", f.Column)
		}
		columns = append(columns, f.Column)
		values = append(values, f.Value)
	}
	return columns, values, nil
}

func (gtx *gatewayTx) InsertGrade(ctx context.Context, u grade.Upsert) (int, error) {
	columns, values, err := columnsOf(u)
	if err != nil {
		return 0, err
	}
	key := u.Key()
	columns = append([]string{"estudiante_id", "materia_curso_id", "ciclo_lectivo_id"}, columns...)
	values = append([]interface{}{key.StudentID, key.OfferingID, key.CycleID}, values...)

	q := "INSERT INTO calificaciones (" + strings.Join(columns, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ") RETURNING id"

	var id int
	if err := gtx.tx.GetContext(ctx, &id, gtx.tx.Rebind(q), values...); err != nil {
		return 0, errors.Wrap(err, "inserting grade")
	}
	return id, nil
}

func (gtx *gatewayTx) UpdateGrade(ctx context.Context, id int, u grade.Upsert) error {
	columns, values, err := columnsOf(u)
	if err != nil {
		return err
	}
	sets := make([]string, 0, len(columns))
	for _, col := range columns {
		sets = append(sets, col+" = ?")
	}
	q := "UPDATE calificaciones SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	res, err := gtx.tx.ExecContext(ctx, gtx.tx.Rebind(q), append(values, id)...)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return grade.ErrNotFound
	}
	return nil
}
