package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/importer"
	"github.com/trezcool/gradebook/core/student"
)

var errTxDone = errors.New("transaction has already been committed or rolled back")

type (
	gateway struct {
		db *DB
	}

	// gatewayTx works on a copy of the grades table, swapped in on commit.
	gatewayTx struct {
		db     *DB
		grades gradeTable
		done   bool
	}
)

var (
	_ importer.Gateway   = (*gateway)(nil)
	_ importer.GatewayTx = (*gatewayTx)(nil)
)

func NewGateway(db *DB) importer.Gateway {
	return &gateway{db: db}
}

func (gw *gateway) Begin(ctx context.Context) (importer.GatewayTx, error) {
	if err := gw.db.failure("Begin"); err != nil {
		return nil, err
	}
	gw.db.txMu.Lock()

	gw.db.mutex.RLock()
	defer gw.db.mutex.RUnlock()
	return &gatewayTx{db: gw.db, grades: gw.db.grades.clone()}, nil
}

func (gw *gateway) ListCourseOfferings(ctx context.Context, courseID int) ([]curriculum.Offering, error) {
	gw.db.mutex.RLock()
	defer gw.db.mutex.RUnlock()

	offerings := make([]curriculum.Offering, 0)
	for _, off := range gw.db.offerings {
		if off.CourseID == courseID {
			offerings = append(offerings, off)
		}
	}
	sort.Slice(offerings, func(i, j int) bool {
		if offerings[i].SubjectName != offerings[j].SubjectName {
			return offerings[i].SubjectName < offerings[j].SubjectName
		}
		return offerings[i].ID < offerings[j].ID
	})
	return offerings, nil
}

func (gw *gateway) GetOffering(ctx context.Context, id int) (curriculum.Offering, error) {
	gw.db.mutex.RLock()
	defer gw.db.mutex.RUnlock()

	if off, ok := gw.db.offerings[id]; ok {
		return off, nil
	}
	return curriculum.Offering{}, curriculum.ErrOfferingNotFound
}

func (gw *gateway) GetActiveCycle(ctx context.Context) (grade.Cycle, error) {
	gw.db.mutex.RLock()
	defer gw.db.mutex.RUnlock()

	for _, c := range gw.db.cycles {
		if c.Active {
			return c, nil
		}
	}
	return grade.Cycle{}, grade.ErrNoActiveCycle
}

func (tx *gatewayTx) end() error {
	if tx.done {
		return errTxDone
	}
	tx.done = true
	tx.db.txMu.Unlock()
	return nil
}

func (tx *gatewayTx) Commit() error {
	if tx.done {
		return errTxDone
	}
	if err := tx.db.failure("Commit"); err != nil {
		return err
	}
	tx.db.mutex.Lock()
	tx.db.grades = tx.grades
	tx.db.mutex.Unlock()
	return tx.end()
}

func (tx *gatewayTx) Rollback() error {
	return tx.end()
}

func (tx *gatewayTx) ListCandidateStudents(ctx context.Context, offeringID int) ([]student.Student, error) {
	if tx.done {
		return nil, errTxDone
	}
	if err := tx.db.failure("ListCandidateStudents"); err != nil {
		return nil, err
	}
	tx.db.mutex.RLock()
	defer tx.db.mutex.RUnlock()

	off, ok := tx.db.offerings[offeringID]
	if !ok {
		return nil, curriculum.ErrOfferingNotFound
	}

	pool := make([]student.Student, 0)
	for id := range tx.db.enrollments[off.CourseID] {
		if std, ok := tx.db.students[id]; ok {
			pool = append(pool, std)
		}
	}
	for id := range tx.db.retakes[offeringID] {
		if std, ok := tx.db.students[id]; ok {
			std.Retaking = true
			pool = append(pool, std)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	return pool, nil
}

func (tx *gatewayTx) FindExistingGrade(ctx context.Context, key grade.Key) (grade.Grade, error) {
	if tx.done {
		return grade.Grade{}, errTxDone
	}
	if err := tx.db.failure("FindExistingGrade"); err != nil {
		return grade.Grade{}, err
	}
	if g, ok := tx.grades.find(key); ok {
		return g, nil
	}
	return grade.Grade{}, grade.ErrNotFound
}

func (tx *gatewayTx) InsertGrade(ctx context.Context, u grade.Upsert) (int, error) {
	if tx.done {
		return 0, errTxDone
	}
	if err := tx.db.failure("InsertGrade"); err != nil {
		return 0, err
	}
	if _, exists := tx.grades.find(u.Key()); exists {
		return 0, errors.Errorf("grade %+v already exists", u.Key())
	}

	g := grade.Grade{Key: u.Key()}
	if err := u.Apply(&g); err != nil {
		return 0, err
	}
	tx.grades.pk++
	g.ID = tx.grades.pk
	tx.grades.table[g.ID] = g
	return g.ID, nil
}

func (tx *gatewayTx) UpdateGrade(ctx context.Context, id int, u grade.Upsert) error {
	if tx.done {
		return errTxDone
	}
	if err := tx.db.failure("UpdateGrade"); err != nil {
		return err
	}
	g, ok := tx.grades.table[id]
	if !ok {
		return grade.ErrNotFound
	}
	if err := u.Apply(&g); err != nil {
		return err
	}
	tx.grades.table[id] = g
	return nil
}
