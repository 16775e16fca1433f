package student

import "strings"

type (
	// Student is an active enrollee of a course, or a student retaking one of its subject offerings.
	Student struct {
		ID             int    `db:"id" json:"id"`
		GivenName      string `db:"nombre" json:"given_name"`
		Surname        string `db:"apellido" json:"surname"`
		IdentityNumber string `db:"dni" json:"identity_number,omitempty"`
		Retaking       bool   `db:"recursando" json:"retaking"`
	}

	// Candidate is a student considered for an imported name.
	Candidate struct {
		StudentID   int     `json:"student_id"`
		DisplayName string  `json:"display_name"`
		Score       float64 `json:"score"`
	}
)

// DisplayName returns "Surname, GivenName".
func (s Student) DisplayName() string {
	surname, given := strings.TrimSpace(s.Surname), strings.TrimSpace(s.GivenName)
	switch {
	case surname == "":
		return given
	case given == "":
		return surname
	}
	return surname + ", " + given
}

// nameVariants returns the spellings an export tool may use for the student's name.
func (s Student) nameVariants() []string {
	return []string{
		s.Surname + ", " + s.GivenName,
		s.Surname + " " + s.GivenName,
		s.GivenName + " " + s.Surname,
		strings.ToUpper(s.Surname + ", " + s.GivenName),
		strings.ToUpper(s.Surname + " " + s.GivenName),
	}
}
