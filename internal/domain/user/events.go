package user

import "time"

type Registered struct {
	UserID ID        `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	At     time.Time `json:"at"`
}

func (e Registered) EventName() string     { return "user.registered" }
func (e Registered) AggregateID() string   { return string(e.UserID) }
func (e Registered) OccurredAt() time.Time { return e.At }

type RoleChanged struct {
	UserID ID        `json:"user_id"`
	From   Role      `json:"from"`
	To     Role      `json:"to"`
	At     time.Time `json:"at"`
}

func (e RoleChanged) EventName() string     { return "user.role_changed" }
func (e RoleChanged) AggregateID() string   { return string(e.UserID) }
func (e RoleChanged) OccurredAt() time.Time { return e.At }

type Deactivated struct {
	UserID ID        `json:"user_id"`
	At     time.Time `json:"at"`
}

func (e Deactivated) EventName() string     { return "user.deactivated" }
func (e Deactivated) AggregateID() string   { return string(e.UserID) }
func (e Deactivated) OccurredAt() time.Time { return e.At }

type PasswordResetRequested struct {
	UserID ID        `json:"user_id"`
	At     time.Time `json:"at"`
}

func (e PasswordResetRequested) EventName() string     { return "user.password_reset_requested" }
func (e PasswordResetRequested) AggregateID() string   { return string(e.UserID) }
func (e PasswordResetRequested) OccurredAt() time.Time { return e.At }
