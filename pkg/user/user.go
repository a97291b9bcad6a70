package user

import "errors"

const DefaultPhoto = "default.jpg"

type User struct {
	Id                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Password           []byte `json:"-"`
	Photo              string `json:"photo"`
	RollNumber         string `json:"rollNumber"`
	NumberOfPosts      int    `json:"numberOfPosts"`
	NumberOfComplaints int    `json:"numberOfComplaints"`
}

// Owner is the part of a user attached to the blogs they wrote.
type Owner struct {
	Id         string `json:"id"`
	Name       string `json:"name"`
	Photo      string `json:"photo"`
	RollNumber string `json:"rollNumber"`
}

func (u *User) Owner() *Owner {
	return &Owner{Id: u.Id, Name: u.Name, Photo: u.Photo, RollNumber: u.RollNumber}
}

// Counter names a denormalized statistics column of the users table.
type Counter string

const (
	CounterPosts      Counter = "number_of_posts"
	CounterComplaints Counter = "number_of_complaints"
)

func (c Counter) Valid() bool {
	return c == CounterPosts || c == CounterComplaints
}

var (
	ErrNotFound       = errors.New("user: not found")
	ErrEmailTaken     = errors.New("user: email already in use")
	ErrUnknownCounter = errors.New("user: unknown counter")
)
