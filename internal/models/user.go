package models

// User is a directory entry for a notification recipient.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Employee links a pay stub to the user who receives it.
type Employee struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

// EmployeeFromRecord maps an employee document onto Employee.
func EmployeeFromRecord(r *Record) *Employee {
	if r == nil {
		return nil
	}
	return &Employee{
		ID:     r.ID,
		UserID: r.String(FieldUserID),
		Email:  r.String(FieldEmail),
		Name:   r.String(FieldName),
	}
}
