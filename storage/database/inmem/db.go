package inmemdb

import (
	"sync"

	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/student"
)

type (
	// DB keeps the grading reference data and grades in memory.
	DB struct {
		mutex sync.RWMutex
		txMu  sync.Mutex // one open transaction at a time

		students    map[int]student.Student
		enrollments map[int]map[int]bool // course id -> active student ids
		retakes     map[int]map[int]bool // offering id -> active student ids
		offerings   map[int]curriculum.Offering
		cycles      map[int]grade.Cycle
		grades      gradeTable

		failures map[string]error
	}

	gradeTable struct {
		pk    int
		table map[int]grade.Grade
	}
)

func Open() *DB {
	return &DB{
		students:    make(map[int]student.Student),
		enrollments: make(map[int]map[int]bool),
		retakes:     make(map[int]map[int]bool),
		offerings:   make(map[int]curriculum.Offering),
		cycles:      make(map[int]grade.Cycle),
		grades:      gradeTable{table: make(map[int]grade.Grade)},
		failures:    make(map[string]error),
	}
}

func (gt gradeTable) clone() gradeTable {
	cp := gradeTable{pk: gt.pk, table: make(map[int]grade.Grade, len(gt.table))}
	for id, g := range gt.table {
		cp.table[id] = g
	}
	return cp
}

// AddStudent stores `std` and, when courseID > 0, enrolls them in that course.
func (db *DB) AddStudent(std student.Student, courseID int) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	std.Retaking = false
	db.students[std.ID] = std
	if courseID > 0 {
		if db.enrollments[courseID] == nil {
			db.enrollments[courseID] = make(map[int]bool)
		}
		db.enrollments[courseID][std.ID] = true
	}
}

// AddRetake registers `studentID` as retaking `offeringID`.
func (db *DB) AddRetake(studentID, offeringID int) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if db.retakes[offeringID] == nil {
		db.retakes[offeringID] = make(map[int]bool)
	}
	db.retakes[offeringID][studentID] = true
}

func (db *DB) AddOffering(off curriculum.Offering) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.offerings[off.ID] = off
}

// AddCycle stores `c`; an active cycle deactivates the others.
func (db *DB) AddCycle(c grade.Cycle) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if c.Active {
		for id, other := range db.cycles {
			other.Active = false
			db.cycles[id] = other
		}
	}
	db.cycles[c.ID] = c
}

// Grades returns the committed grades ordered by id.
func (db *DB) Grades() []grade.Grade {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	grades := make([]grade.Grade, 0, len(db.grades.table))
	for id := 1; id <= db.grades.pk; id++ {
		if g, ok := db.grades.table[id]; ok {
			grades = append(grades, g)
		}
	}
	return grades
}

// Grade returns the committed grade of `key`.
func (db *DB) Grade(key grade.Key) (grade.Grade, bool) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return db.grades.find(key)
}

// FailOn makes the gateway operation `op` (eg: "InsertGrade", "Commit") return `err` until cleared with a nil err.
func (db *DB) FailOn(op string, err error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if err == nil {
		delete(db.failures, op)
		return
	}
	db.failures[op] = err
}

func (db *DB) failure(op string) error {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return db.failures[op]
}

func (gt gradeTable) find(key grade.Key) (grade.Grade, bool) {
	for _, g := range gt.table {
		if g.Key == key {
			return g, true
		}
	}
	return grade.Grade{}, false
}
