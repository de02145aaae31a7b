package chat

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	domain "github.com/robertkruk/parent-connect-app/domain/chat"
	school "github.com/robertkruk/parent-connect-app/domain/school"
)

// seedID derives a stable UUID from a record key so repeated seed runs and
// other modules seeding the same database agree on identifiers.
func seedID(kind, key string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("parent-connect:"+kind+":"+key)).String()
}

// seed populates the database with the demo school community: two classes,
// five families, three chats and a few opening messages. It is a no-op when
// the demo classes already exist.
func (m *ChatModule) seed(_ context.Context) error {
	repo := NewRepository(m.db)

	thirdGradeClassID := seedID("class", "mrs-smith-3rd-grade")
	existing, err := repo.FindClassByID(thirdGradeClassID)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Println("[chat] Demo data already present, skipping seed")
		return nil
	}

	log.Println("[chat] Seeding demo data...")

	sarahID := seedID("user", "sarah.johnson@email.com")
	michaelID := seedID("user", "michael.chen@email.com")
	emilyID := seedID("user", "emily.rodriguez@email.com")
	davidID := seedID("user", "david.thompson@email.com")
	lisaID := seedID("user", "lisa.wang@email.com")

	classes := []*school.Class{
		{
			ID:          thirdGradeClassID,
			Name:        "Mrs. Smith's 3rd Grade",
			Grade:       "3rd Grade",
			School:      "Lincoln Elementary",
			Teacher:     "Mrs. Sarah Smith",
			Description: "Welcome to 3rd Grade! We have an exciting year ahead.",
		},
		{
			ID:          seedID("class", "mr-davis-4th-grade"),
			Name:        "Mr. Davis's 4th Grade",
			Grade:       "4th Grade",
			School:      "Lincoln Elementary",
			Teacher:     "Mr. Robert Davis",
			Description: "Welcome to 4th Grade! Let's make this year amazing.",
		},
	}
	for _, cls := range classes {
		if err := repo.CreateClass(cls); err != nil {
			return err
		}
	}

	children := []*school.Child{
		{ID: seedID("child", "emma-johnson"), Name: "Emma Johnson", Grade: "3rd Grade", School: "Lincoln Elementary", ParentID: sarahID, Avatar: "https://images.unsplash.com/photo-1544717305-2782549b5136?w=150&h=150&fit=crop&crop=face"},
		{ID: seedID("child", "alex-chen"), Name: "Alex Chen", Grade: "3rd Grade", School: "Lincoln Elementary", ParentID: michaelID, Avatar: "https://images.unsplash.com/photo-1503454537195-1dcabb73ffb9?w=150&h=150&fit=crop&crop=face"},
		{ID: seedID("child", "sophia-rodriguez"), Name: "Sophia Rodriguez", Grade: "3rd Grade", School: "Lincoln Elementary", ParentID: emilyID, Avatar: "https://images.unsplash.com/photo-1544717302-de2939b7ef71?w=150&h=150&fit=crop&crop=face"},
		{ID: seedID("child", "james-thompson"), Name: "James Thompson", Grade: "4th Grade", School: "Lincoln Elementary", ParentID: davidID, Avatar: "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=150&h=150&fit=crop&crop=face"},
		{ID: seedID("child", "mia-wang"), Name: "Mia Wang", Grade: "3rd Grade", School: "Lincoln Elementary", ParentID: lisaID, Avatar: "https://images.unsplash.com/photo-1544717305-2782549b5136?w=150&h=150&fit=crop&crop=face"},
	}
	for _, child := range children {
		if err := repo.CreateChild(child); err != nil {
			return err
		}
	}

	thirdGradeChatID := seedID("chat", "mrs-smith-3rd-grade")
	fourthGradeChatID := seedID("chat", "mr-davis-4th-grade")
	directChatID := seedID("chat", "sarah-michael-direct")

	now := time.Now().UTC()

	chats := []struct {
		chat         *domain.Chat
		participants []string
	}{
		{
			chat: &domain.Chat{
				ID:      thirdGradeChatID,
				Name:    "Mrs. Smith's 3rd Grade",
				Type:    domain.ChatTypeClass,
				ClassID: thirdGradeClassID,
			},
			participants: []string{sarahID, michaelID, emilyID, lisaID},
		},
		{
			chat: &domain.Chat{
				ID:      fourthGradeChatID,
				Name:    "Mr. Davis's 4th Grade",
				Type:    domain.ChatTypeClass,
				ClassID: classes[1].ID,
			},
			participants: []string{davidID},
		},
		{
			chat: &domain.Chat{
				ID:   directChatID,
				Name: "Sarah Johnson",
				Type: domain.ChatTypeDirect,
			},
			participants: []string{sarahID, michaelID},
		},
	}
	for _, c := range chats {
		if err := repo.CreateChat(c.chat, c.participants); err != nil {
			return err
		}
	}

	messages := []*domain.Message{
		{
			Content:  "Hi everyone! I'm Emma's mom. Looking forward to connecting with other parents this year!",
			SenderID: sarahID,
			ChatID:   thirdGradeChatID,
		},
		{
			Content:  "Hello! I'm Alex's dad. Nice to meet everyone!",
			SenderID: michaelID,
			ChatID:   thirdGradeChatID,
		},
		{
			Content:  "Hi! Sophia's mom here. Does anyone know if the field trip permission slips are due this week?",
			SenderID: emilyID,
			ChatID:   thirdGradeChatID,
		},
		{
			Content:  "Welcome to 4th Grade! I'm James's dad. Looking forward to a great year!",
			SenderID: davidID,
			ChatID:   fourthGradeChatID,
		},
	}
	for i, msg := range messages {
		msg.ID = seedID("message", msg.ChatID+":"+msg.SenderID)
		msg.Type = domain.MessageTypeText
		msg.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		msg.UpdatedAt = msg.CreatedAt
		if err := repo.CreateMessage(msg); err != nil {
			return err
		}
		if err := repo.UpsertMessageStatus(msg.ID, domain.StatusSent); err != nil {
			return err
		}
	}

	log.Println("[chat] Demo data seeded")
	return nil
}
