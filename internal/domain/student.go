package domain

import "time"

type Student struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

type Session struct {
	Token     string    `json:"token"`
	StudentID int64     `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}
