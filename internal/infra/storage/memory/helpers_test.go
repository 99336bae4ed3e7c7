package memory_test

import (
	"time"

	domainauth "hostelhunt/internal/domain/auth"
	domainuser "hostelhunt/internal/domain/user"
)

var errSessionNotFound = domainauth.ErrSessionNotFound

func sessionFor(id, userID string, now time.Time) *domainauth.Session {
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		ID:     domainauth.SessionID(id),
		UserID: domainuser.ID(userID),
		Role:   domainuser.RoleStudent,
		TTL:    time.Hour,
		Now:    now,
	})
	if err != nil {
		panic(err)
	}
	return session
}
