package curriculum

type (
	// Offering is a subject as taught within a specific course.
	Offering struct {
		ID          int    `db:"id" json:"id"`
		CourseID    int    `db:"curso_id" json:"course_id"`
		SubjectName string `db:"nombre" json:"subject_name"`
		SubjectCode string `db:"codigo" json:"subject_code,omitempty"`
	}

	// Binding ties a bulk-import file to the offering it targets.
	Binding struct {
		Ordinal     int    `json:"ordinal"`
		SubjectName string `json:"subject_name"`
		OfferingID  int    `json:"offering_id"`
	}
)
