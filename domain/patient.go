package domain

// Patient is a registered pharmacy customer. Age may be unknown.
type Patient struct {
	ID             int64  `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	Age            *int64 `db:"age" json:"age,omitempty"`
	MedicalHistory string `db:"medical_history" json:"medical_history"`
}
