package models

import "errors"

var (
	ErrMenuItemNotFound = errors.New("menu item not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrUserNotFound     = errors.New("user not found")
)

var (
	ErrEmailTaken     = errors.New("email already registered")
	ErrStatusConflict = errors.New("order status changed concurrently")
)
