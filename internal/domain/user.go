package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidField is returned when a typed field (id, roles) carries a value of the wrong shape.
var ErrInvalidField = errors.New("invalid field")

// Fields is a client-supplied JSON object, kept as raw values so arbitrary fields survive a round trip.
type Fields map[string]json.RawMessage

// Role is owned by exactly one User. ID is unique within the owner's roles.
type Role struct {
	ID    int64
	Extra map[string]json.RawMessage

	// missingID marks a role decoded without an id. Such a role is written
	// back without one and matches no id lookup.
	missingID bool
}

// User is the top-level persisted entity.
type User struct {
	ID    int64
	Roles []Role
	Extra map[string]json.RawMessage
}

// Collection is the complete persisted state.
type Collection []User

// NewUser returns a user with the given id and an empty roles list.
func NewUser(id int64) User {
	return User{ID: id, Roles: make([]Role, 0), Extra: make(map[string]json.RawMessage)}
}

// NewRole returns a role with the given id and no extra fields.
func NewRole(id int64) Role {
	return Role{ID: id, Extra: make(map[string]json.RawMessage)}
}

// HasID reports whether the role carries an id.
func (r Role) HasID() bool {
	return !r.missingID
}

// Merge applies fields onto the role. Present fields overwrite, absent ones are retained.
// A null id keeps the current one.
func (r *Role) Merge(fields Fields) error {
	if r.Extra == nil {
		r.Extra = make(map[string]json.RawMessage, len(fields))
	}
	for k, v := range fields {
		if k == "id" {
			id, ok, err := decodeID(v)
			if err != nil {
				return err
			}
			if ok {
				r.ID = id
				r.missingID = false
			}
			continue
		}
		r.Extra[k] = v
	}
	return nil
}

// Merge applies fields onto the user. A null id keeps the current one. A falsy
// roles value (null, false, 0, "") leaves an empty list.
func (u *User) Merge(fields Fields) error {
	if u.Extra == nil {
		u.Extra = make(map[string]json.RawMessage, len(fields))
	}
	for k, v := range fields {
		switch k {
		case "id":
			id, ok, err := decodeID(v)
			if err != nil {
				return err
			}
			if ok {
				u.ID = id
			}
		case "roles":
			roles, err := decodeRoles(v)
			if err != nil {
				return err
			}
			u.Roles = roles
		default:
			u.Extra[k] = v
		}
	}
	return nil
}

// AssignMissingRoleIDs gives every role without an id a fresh one from next.
func (u *User) AssignMissingRoleIDs(next func() int64) {
	for i := range u.Roles {
		if u.Roles[i].missingID {
			u.Roles[i].ID = next()
			u.Roles[i].missingID = false
		}
	}
}

// FindRole returns a pointer into u.Roles, or nil.
func (u *User) FindRole(id int64) *Role {
	for i := range u.Roles {
		if u.Roles[i].HasID() && u.Roles[i].ID == id {
			return &u.Roles[i]
		}
	}
	return nil
}

// RemoveRole drops every role with the given id and reports whether anything was removed.
func (u *User) RemoveRole(id int64) bool {
	kept := make([]Role, 0, len(u.Roles))
	for _, r := range u.Roles {
		if !r.HasID() || r.ID != id {
			kept = append(kept, r)
		}
	}
	removed := len(kept) != len(u.Roles)
	u.Roles = kept
	return removed
}

// Find returns a pointer into c, or nil.
func (c Collection) Find(id int64) *User {
	for i := range c {
		if c[i].ID == id {
			return &c[i]
		}
	}
	return nil
}

// Remove returns c without the users carrying id and whether any were dropped.
func (c Collection) Remove(id int64) (Collection, bool) {
	kept := make(Collection, 0, len(c))
	for _, u := range c {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	return kept, len(kept) != len(c)
}

func (r Role) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+1)
	for k, v := range r.Extra {
		out[k] = v
	}
	if r.HasID() {
		out["id"] = r.ID
	}
	return marshal(out)
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = NewRole(0)
	r.missingID = true
	return r.Merge(Fields(raw))
}

func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Extra)+2)
	for k, v := range u.Extra {
		out[k] = v
	}
	out["id"] = u.ID
	roles := u.Roles
	if roles == nil {
		roles = make([]Role, 0)
	}
	out["roles"] = roles
	return marshal(out)
}

func (u *User) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = NewUser(0)
	return u.Merge(Fields(raw))
}

// MarshalIndent encodes v with two-space indentation and without HTML escaping,
// so stored text matches what the client sent.
func MarshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// decodeID reads an integer id. A null id reports ok=false.
func decodeID(raw json.RawMessage) (id int64, ok bool, err error) {
	if isNull(raw) {
		return 0, false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return 0, false, fmt.Errorf("%w: id must be an integer", ErrInvalidField)
	}
	id, err = n.Int64()
	if err != nil {
		return 0, false, fmt.Errorf("%w: id must be an integer", ErrInvalidField)
	}
	return id, true, nil
}

// decodeRoles reads a roles array. Falsy values yield an empty list.
func decodeRoles(raw json.RawMessage) ([]Role, error) {
	if isFalsy(raw) {
		return make([]Role, 0), nil
	}
	var roles []Role
	if err := json.Unmarshal(raw, &roles); err != nil {
		return nil, fmt.Errorf("%w: roles must be an array of objects", ErrInvalidField)
	}
	if roles == nil {
		roles = make([]Role, 0)
	}
	return roles, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

func isFalsy(raw json.RawMessage) bool {
	if isNull(raw) {
		return true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return !x
	case float64:
		return x == 0
	case string:
		return x == ""
	}
	return false
}
