package user

import "go.mongodb.org/mongo-driver/bson/primitive"

// User represents a user document stored in the users collection.
type User struct {
	ID    primitive.ObjectID `json:"_id,omitzero" bson:"_id,omitempty"`      // ID is assigned by the storage layer on insert
	Name  string             `json:"name,omitempty" bson:"name,omitempty"`   // Name is the full name of the user
	Email string             `json:"email,omitempty" bson:"email,omitempty"` // Email is the contact address of the user
	Phone string             `json:"phone,omitempty" bson:"phone,omitempty"` // Phone is the contact number of the user
}

// ParseID converts a 24-character hex string into an ObjectID.
func ParseID(hex string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(hex)
}
