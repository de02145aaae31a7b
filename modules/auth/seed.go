package auth

import (
	"errors"
	"log"

	"github.com/google/uuid"
	domain "github.com/robertkruk/parent-connect-app/domain/user"
)

// seedID derives a stable UUID from a record key so repeated seed runs and
// other modules seeding the same database agree on identifiers.
func seedID(kind, key string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("parent-connect:"+kind+":"+key)).String()
}

// seed creates the demo parent accounts. Every account logs in with
// "password123". Accounts that already exist are left untouched.
func (m *AuthModule) seed() error {
	hash, err := m.service.hasher.Hash("password123")
	if err != nil {
		return err
	}

	parents := []domain.User{
		{Name: "Sarah Johnson", Email: "sarah.johnson@email.com", Phone: "+1-555-0123", Avatar: "https://images.unsplash.com/photo-1494790108755-2616b612b786?w=150&h=150&fit=crop&crop=face"},
		{Name: "Michael Chen", Email: "michael.chen@email.com", Phone: "+1-555-0124", Avatar: "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=150&h=150&fit=crop&crop=face"},
		{Name: "Emily Rodriguez", Email: "emily.rodriguez@email.com", Phone: "+1-555-0125", Avatar: "https://images.unsplash.com/photo-1438761681033-6461ffad8d80?w=150&h=150&fit=crop&crop=face"},
		{Name: "David Thompson", Email: "david.thompson@email.com", Phone: "+1-555-0126", Avatar: "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=150&h=150&fit=crop&crop=face"},
		{Name: "Lisa Wang", Email: "lisa.wang@email.com", Phone: "+1-555-0127", Avatar: "https://images.unsplash.com/photo-1544005313-94ddf0286df2?w=150&h=150&fit=crop&crop=face"},
	}

	created := 0
	for _, parent := range parents {
		parent.ID = seedID("user", parent.Email)
		parent.PasswordHash = hash
		parent.IsVerified = true

		if err := m.service.repo.Create(&parent); err != nil {
			if errors.Is(err, ErrUserExists) {
				continue
			}
			return err
		}
		created++
	}

	if created > 0 {
		log.Printf("[auth] Seeded %d demo accounts (password: password123)", created)
	}
	return nil
}
