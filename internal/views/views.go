// Package views holds the client-side state of the dealdesk screens: the
// dossier list, the status control, the delete confirmation, the interaction
// form and the reminder badge. Each component reads through a
// querycache.Cache and reports outcomes through an injected Notifier;
// navigation is an explicit side effect on an injected Navigator.
package views

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient message for the user.
type Notification struct {
	Level   Level
	Message string
	Err     error
}

// Notifier displays notifications.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Navigator moves the user to another screen.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

func notifySuccess(n Notifier, msg string) {
	if n != nil {
		n.Notify(Notification{Level: LevelSuccess, Message: msg})
	}
}

func notifyError(n Notifier, msg string, err error) {
	if n != nil {
		n.Notify(Notification{Level: LevelError, Message: msg, Err: err})
	}
}
