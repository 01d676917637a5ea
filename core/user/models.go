package user

import (
	"strings"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/jamii/core"
)

// Roles
const (
	// Learning
	RoleStudent = "student"
	RoleLearner = "learner"

	// Teaching
	RoleTeacher    = "teacher"
	RoleMentor     = "mentor"
	RoleInstructor = "instructor"

	// Admin
	RoleAdmin     = "admin"
	RoleSupport   = "support"
	RoleModerator = "moderator"

	// Regular
	RoleUser   = "user"
	RoleViewer = "viewer"
	RoleGuest  = "guest"

	// DefaultRole is what any unknown or missing role is coerced to.
	DefaultRole = RoleViewer
	// RegisterRole is the role of self-registered accounts.
	RegisterRole = RoleUser
)

// RoleFamily is one of the disjoint groups a role string belongs to.
type RoleFamily int

const (
	FamilyNone RoleFamily = iota
	FamilyLearning
	FamilyTeaching
	FamilyAdmin
	FamilyRegular
)

func (f RoleFamily) String() string {
	switch f {
	case FamilyLearning:
		return "learning"
	case FamilyTeaching:
		return "teaching"
	case FamilyAdmin:
		return "admin"
	case FamilyRegular:
		return "regular"
	default:
		return "none"
	}
}

func (f RoleFamily) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

var (
	LearningRoles = []string{RoleStudent, RoleLearner}
	TeachingRoles = []string{RoleTeacher, RoleMentor, RoleInstructor}
	AdminRoles    = []string{RoleAdmin, RoleSupport, RoleModerator}
	RegularRoles  = []string{RoleUser, RoleViewer, RoleGuest}

	// FamilyPriority is the order families are checked in: the first family
	// containing a role wins.
	FamilyPriority = []RoleFamily{FamilyLearning, FamilyTeaching, FamilyAdmin, FamilyRegular}

	familyMembers = map[RoleFamily][]string{
		FamilyLearning: LearningRoles,
		FamilyTeaching: TeachingRoles,
		FamilyAdmin:    AdminRoles,
		FamilyRegular:  RegularRoles,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent, Family: FamilyLearning},
		{Name: "Learner", Value: RoleLearner, Family: FamilyLearning},
		{Name: "Teacher", Value: RoleTeacher, Family: FamilyTeaching},
		{Name: "Mentor", Value: RoleMentor, Family: FamilyTeaching},
		{Name: "Instructor", Value: RoleInstructor, Family: FamilyTeaching},
		{Name: "Admin", Value: RoleAdmin, Family: FamilyAdmin},
		{Name: "Support", Value: RoleSupport, Family: FamilyAdmin},
		{Name: "Moderator", Value: RoleModerator, Family: FamilyAdmin},
		{Name: "User", Value: RoleUser, Family: FamilyRegular},
		{Name: "Viewer", Value: RoleViewer, Family: FamilyRegular},
		{Name: "Guest", Value: RoleGuest, Family: FamilyRegular},
	}

	PasswordCost = bcrypt.DefaultCost // lowered in tests
)

type Role struct {
	Name   string     `json:"name"`
	Value  string     `json:"value"`
	Family RoleFamily `json:"family"`
}

// Classify maps a role to its family. Unknown roles map to FamilyNone.
func Classify(role string) RoleFamily {
	role = core.CleanString(role, true /* lower */)
	for _, family := range FamilyPriority {
		for _, member := range familyMembers[family] {
			if role == member {
				return family
			}
		}
	}
	return FamilyNone
}

type User struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	PasswordHash  []byte   `json:"passwordHash,omitempty"`
	DisplayName   string   `json:"displayName"`
	PhotoURL      string   `json:"photoURL,omitempty"`
	EmailVerified bool     `json:"emailVerified"`
	Role          string   `json:"role"`
	Roles         []string `json:"roles"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), PasswordCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) Family() RoleFamily { return Classify(u.Role) }
func (u *User) IsLearner() bool    { return u.Family() == FamilyLearning }
func (u *User) IsTeacher() bool    { return u.Family() == FamilyTeaching }
func (u *User) IsAdmin() bool      { return u.Family() == FamilyAdmin }
func (u *User) IsRegular() bool    { return u.Family() == FamilyRegular }

// Clone returns a copy of u sharing no memory with it.
func (u User) Clone() User {
	if u.Roles != nil {
		u.Roles = append([]string(nil), u.Roles...)
	}
	if u.PasswordHash != nil {
		u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	}
	return u
}

// Normalize guarantees the session invariants on u:
// Role is set and belongs to a family (a missing or unknown role becomes DefaultRole),
// and Roles contains Role.
func Normalize(u User) User {
	u = u.Clone()
	u.Role = core.CleanString(u.Role, true /* lower */)
	if Classify(u.Role) == FamilyNone {
		u.Role = DefaultRole
	}
	if !u.HasRole(u.Role) {
		u.Roles = append([]string{u.Role}, u.Roles...)
	}
	return u
}

// Patch holds caller supplied fields; only Valid ones are applied.
type Patch struct {
	Email         null.String `json:"email"`
	DisplayName   null.String `json:"displayName"`
	PhotoURL      null.String `json:"photoURL"`
	EmailVerified null.Bool   `json:"emailVerified"`
	Role          null.String `json:"role"`
	Password      null.String `json:"password"`
}

// Apply merges p into u, p's fields win. Password is hashed.
func (p Patch) Apply(u User) (User, error) {
	u = u.Clone()
	if p.Email.Valid {
		u.Email = core.CleanString(p.Email.String, true /* lower */)
	}
	if p.DisplayName.Valid {
		u.DisplayName = core.CleanString(p.DisplayName.String)
	}
	if p.PhotoURL.Valid {
		u.PhotoURL = strings.TrimSpace(p.PhotoURL.String)
	}
	if p.EmailVerified.Valid {
		u.EmailVerified = p.EmailVerified.Bool
	}
	if p.Role.Valid {
		u.Role = core.CleanString(p.Role.String, true /* lower */)
		u.Roles = []string{u.Role}
	}
	if p.Password.Valid {
		if err := u.SetPassword(p.Password.String); err != nil {
			return User{}, err
		}
	}
	return u, nil
}

// IsEmpty reports whether p would change nothing.
func (p Patch) IsEmpty() bool {
	return !(p.Email.Valid || p.DisplayName.Valid || p.PhotoURL.Valid ||
		p.EmailVerified.Valid || p.Role.Valid || p.Password.Valid)
}
