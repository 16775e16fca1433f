package importer

import (
	"context"

	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/student"
)

type (
	// Gateway is the only way imports touch durable storage.
	Gateway interface {
		Begin(ctx context.Context) (GatewayTx, error)

		ListCourseOfferings(ctx context.Context, courseID int) ([]curriculum.Offering, error)
		// GetOffering returns curriculum.ErrOfferingNotFound when there is no such offering.
		GetOffering(ctx context.Context, id int) (curriculum.Offering, error)
		// GetActiveCycle returns grade.ErrNoActiveCycle when no academic cycle is active.
		GetActiveCycle(ctx context.Context) (grade.Cycle, error)
	}

	// GatewayTx is one file's transaction. Its writes are visible to others only after Commit.
	GatewayTx interface {
		Commit() error
		Rollback() error

		// ListCandidateStudents returns the active enrollees of the offering's course
		// and the students actively retaking the offering.
		ListCandidateStudents(ctx context.Context, offeringID int) ([]student.Student, error)
		// FindExistingGrade returns grade.ErrNotFound when there is no grade for `key`.
		FindExistingGrade(ctx context.Context, key grade.Key) (grade.Grade, error)
		InsertGrade(ctx context.Context, u grade.Upsert) (int, error)
		UpdateGrade(ctx context.Context, id int, u grade.Upsert) error
	}
)
