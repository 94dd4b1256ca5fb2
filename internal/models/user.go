package models

import "time"

// User is the transfer representation of a directory user.
// ObjectID is assigned by the directory on create and never changes afterwards.
type User struct {
	ObjectID    string    `bson:"_id" json:"objectId"`
	Email       string    `bson:"email" json:"email"`
	DisplayName string    `bson:"displayName,omitempty" json:"displayName,omitempty"`
	GivenName   string    `bson:"givenName,omitempty" json:"givenName,omitempty"`
	Surname     string    `bson:"surname,omitempty" json:"surname,omitempty"`
	Enabled     bool      `bson:"accountEnabled" json:"accountEnabled"`
	// Attributes carries provider-specific profile fields this layer does not interpret.
	Attributes map[string]interface{} `bson:"attributes,omitempty" json:"attributes,omitempty"`
	CreatedAt  time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time              `bson:"updatedAt" json:"updatedAt"`
}

// Clone returns a copy that does not share the Attributes map.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Attributes != nil {
		c.Attributes = make(map[string]interface{}, len(u.Attributes))
		for k, v := range u.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}
