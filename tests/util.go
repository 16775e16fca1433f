package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/student"
	"github.com/trezcool/gradebook/storage/database"
	inmemdb "github.com/trezcool/gradebook/storage/database/inmem"
)

// School ids shared by the fixtures.
const (
	CourseID      = 1
	OtherCourseID = 2
	CycleID       = 2024

	MathOfferingID     = 10 // 3rd year, ordinal 12
	LanguageOfferingID = 11 // 3rd year, ordinal 13
	HistoryOfferingID  = 12 // 3rd year, ordinal 10
	OtherMathOffering  = 20 // same subject in OtherCourseID
)

var (
	Offerings = []curriculum.Offering{
		{ID: MathOfferingID, CourseID: CourseID, SubjectName: "Matemática", SubjectCode: "MAT3"},
		{ID: LanguageOfferingID, CourseID: CourseID, SubjectName: "Prácticas del Lenguaje"},
		{ID: HistoryOfferingID, CourseID: CourseID, SubjectName: "Historia"},
		{ID: OtherMathOffering, CourseID: OtherCourseID, SubjectName: "Matemática"},
	}

	Students = []student.Student{
		{ID: 1, GivenName: "Alma", Surname: "Acosta", IdentityNumber: "45111222"},
		{ID: 2, GivenName: "Renzo", Surname: "Alitta", IdentityNumber: "45333444"},
		{ID: 3, GivenName: "Bruno", Surname: "Acosta"},
		{ID: 4, GivenName: "María José", Surname: "Gómez Peña"},
	}

	// Retaker is enrolled in OtherCourseID and retakes MathOfferingID.
	Retaker = student.Student{ID: 5, GivenName: "Lucas", Surname: "Fernández", IdentityNumber: "40999888"}
)

// Seeder is implemented by the in-memory DB and by the SQL fixtures loader.
type Seeder interface {
	AddStudent(std student.Student, courseID int)
	AddRetake(studentID, offeringID int)
	AddOffering(off curriculum.Offering)
	AddCycle(c grade.Cycle)
}

// Seed loads the school fixtures: one active cycle, the offerings, the students and the retaker.
func Seed(s Seeder) {
	s.AddCycle(grade.Cycle{ID: CycleID - 1, Year: CycleID - 1})
	s.AddCycle(grade.Cycle{ID: CycleID, Year: CycleID, Active: true})
	for _, off := range Offerings {
		s.AddOffering(off)
	}
	for _, std := range Students {
		s.AddStudent(std, CourseID)
	}
	s.AddStudent(Retaker, OtherCourseID)
	s.AddRetake(Retaker.ID, MathOfferingID)
}

// NewInmemDB returns a seeded in-memory DB.
func NewInmemDB(t *testing.T) *inmemdb.DB {
	t.Helper()
	db := inmemdb.Open()
	Seed(db)
	return db
}

// OpenSQLite returns a migrated and seeded in-memory sqlite database, closed when the test ends.
func OpenSQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := &core.Config{Database: core.DatabaseConfig{Engine: database.EngineSQLite, Name: ":memory:"}}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(context.Background(), db, database.EngineSQLite); err != nil {
		t.Fatalf("database.Migrate() error = %v", err)
	}
	Seed(&sqlSeeder{t: t, db: db})
	return db
}

// sqlSeeder loads the fixtures with plain SQL, ids included.
type sqlSeeder struct {
	t  *testing.T
	db *sqlx.DB
}

var _ Seeder = (*sqlSeeder)(nil)

func (s *sqlSeeder) exec(q string, args ...interface{}) {
	s.t.Helper()
	if _, err := s.db.Exec(s.db.Rebind(q), args...); err != nil {
		s.t.Fatalf("seeding %q: %v", q, err)
	}
}

func (s *sqlSeeder) ensureCourse(courseID int) {
	s.exec("INSERT INTO cursos (id, nombre, anio) VALUES (?, ?, 3) ON CONFLICT DO NOTHING", courseID, fmt.Sprintf("3º %d", courseID))
}

func (s *sqlSeeder) AddStudent(std student.Student, courseID int) {
	s.ensureCourse(courseID)
	s.exec("INSERT INTO usuarios (id, nombre, apellido, dni, tipo) VALUES (?, ?, ?, ?, 'estudiante')",
		std.ID, std.GivenName, std.Surname, sql.NullString{String: std.IdentityNumber, Valid: std.IdentityNumber != ""})
	s.exec("INSERT INTO matriculas (estudiante_id, curso_id, estado) VALUES (?, ?, 'activo')", std.ID, courseID)
}

func (s *sqlSeeder) AddRetake(studentID, offeringID int) {
	s.exec("INSERT INTO materias_recursado (estudiante_id, materia_curso_id, estado) VALUES (?, ?, 'activo')", studentID, offeringID)
}

func (s *sqlSeeder) AddOffering(off curriculum.Offering) {
	s.ensureCourse(off.CourseID)
	s.exec("INSERT INTO materias (id, nombre, codigo) VALUES (?, ?, ?)",
		off.ID, off.SubjectName, sql.NullString{String: off.SubjectCode, Valid: off.SubjectCode != ""})
	s.exec("INSERT INTO materias_por_curso (id, materia_id, curso_id) VALUES (?, ?, ?)", off.ID, off.ID, off.CourseID)
}

func (s *sqlSeeder) AddCycle(c grade.Cycle) {
	if c.Active {
		s.exec("UPDATE ciclos_lectivos SET activo = ?", false)
	}
	s.exec("INSERT INTO ciclos_lectivos (id, anio, activo) VALUES (?, ?, ?)", c.ID, c.Year, c.Active)
}

// CSV joins `lines` into a file body.
func CSV(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

// ExportRow builds a row of the grading tool export: roll number, name, 20 content cells,
// the content total, outcome, performance and remarks.
func ExportRow(roll int, name, outcome, performance, remarks string) string {
	cells := []string{fmt.Sprint(roll), quote(name)}
	for i := 0; i < 20; i++ {
		if outcome == "" {
			cells = append(cells, "")
		} else {
			cells = append(cells, "A")
		}
	}
	total := "20"
	if outcome == "" {
		total = "0"
	}
	cells = append(cells, total, outcome, performance, quote(remarks))
	return strings.Join(cells, ",")
}

func quote(s string) string {
	if s == "" {
		return ""
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// GradeValue returns the stored value of `column` for `key`, failing the test when there is no grade.
func GradeValue(t *testing.T, db *inmemdb.DB, key grade.Key, column string) interface{} {
	t.Helper()
	g, ok := db.Grade(key)
	if !ok {
		t.Fatalf("no grade for %+v", key)
	}
	return g.Get(column)
}
