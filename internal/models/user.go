package models

import "time"

// User is a single document in the MongoDB users collection. Habits are
// embedded: a habit has no existence outside its owning user, and every
// mutation goes through a whole-document save.
type User struct {
	ID        string    `json:"id"        bson:"_id"`
	Name      string    `json:"name"      bson:"name"`
	Password  string    `json:"-"         bson:"password"` // bcrypt hash, never serialize
	Habits    []Habit   `json:"habits"    bson:"habits"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// RegisterRequest is the JSON body for POST /register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest is the JSON body for POST /login.
type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}
