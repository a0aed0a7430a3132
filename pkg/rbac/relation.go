package rbac

import "fmt"

// Caller is the authenticated identity the auth middleware resolves.
// ContextKey is the gin context key the auth middleware stores the Caller under.
const ContextKey = "caller"

type Caller struct {
	ID       int64
	Role     string
	Verified bool
}

// Relation names how a caller must be related to a resource.
type Relation string

const (
	RelationOwner       Relation = "owner"
	RelationClient      Relation = "client"
	RelationFreelancer  Relation = "freelancer"
	RelationParticipant Relation = "participant" // client or freelancer
)

// Parties lists the user ids a resource is bound to; zero means "not applicable".
type Parties struct {
	Owner      int64
	Client     int64
	Freelancer int64
}

// Resource is anything whose access is decided by who it belongs to.
type Resource interface {
	Parties() Parties
}

// Decision is the typed result of a relation check.
type Decision struct {
	Allowed  bool
	Relation Relation
	CallerID int64
}

// Err returns nil when allowed, otherwise a *RelationError.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &RelationError{CallerID: d.CallerID, Relation: d.Relation}
}

// Require checks that caller holds relation on res.
func Require(caller Caller, res Resource, relation Relation) Decision {
	d := Decision{Relation: relation, CallerID: caller.ID}
	if caller.ID == 0 || res == nil {
		return d
	}

	p := res.Parties()
	switch relation {
	case RelationOwner:
		d.Allowed = p.Owner != 0 && p.Owner == caller.ID
	case RelationClient:
		d.Allowed = p.Client != 0 && p.Client == caller.ID
	case RelationFreelancer:
		d.Allowed = p.Freelancer != 0 && p.Freelancer == caller.ID
	case RelationParticipant:
		d.Allowed = (p.Client != 0 && p.Client == caller.ID) ||
			(p.Freelancer != 0 && p.Freelancer == caller.ID)
	}
	return d
}

// RelationError is returned when the caller is not the required party.
type RelationError struct {
	CallerID int64
	Relation Relation
}

func (e *RelationError) Error() string {
	return fmt.Sprintf("user %d is not the %s of this resource", e.CallerID, e.Relation)
}
