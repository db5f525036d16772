package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleClinic  Role = "clinic"
	RoleAdmin   Role = "admin"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrClinicNotFound  = errors.New("clinic not found")
	ErrUnknownRole     = errors.New("unknown role")
)

// ParseRole accepts the stored discriminator and rejects anything outside the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleClinic, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Account is implemented only by the variants in this package.
type Account interface {
	AccountID() uuid.UUID
	Role() Role
	sealed()
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Language  string
	CreatedAt time.Time
}

type Clinic struct {
	ID        uuid.UUID
	Name      string
	City      string
	CreatedAt time.Time
}

type Admin struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}

func (p Patient) AccountID() uuid.UUID { return p.ID }
func (p Patient) Role() Role           { return RolePatient }
func (Patient) sealed()                {}

func (c Clinic) AccountID() uuid.UUID { return c.ID }
func (c Clinic) Role() Role           { return RoleClinic }
func (Clinic) sealed()                {}

func (a Admin) AccountID() uuid.UUID { return a.ID }
func (a Admin) Role() Role           { return RoleAdmin }
func (Admin) sealed()                {}
