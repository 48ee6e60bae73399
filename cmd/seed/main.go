package main

import (
	"log"
	"os"
	"time"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/model"
	"ai-counselor-be/pkg/database"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm/clause"
)

// Seeds a demo user with a couple of counseling sessions so a fresh
// environment has something to render.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	color.Cyan("🚀 Seeding demo data\n")

	demoUser := model.User{
		Id:       uuid.MustParse("a0a0a0a0-0000-4000-8000-000000000001"),
		Email:    "demo@example.com",
		FullName: "Demo User",
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&demoUser).Error; err != nil {
		color.Red("Failed to seed user: %v", err)
		os.Exit(1)
	}
	color.Green("User: %s (%s)", demoUser.Email, demoUser.Id)

	now := time.Now()

	sessions := []struct {
		title    string
		messages []model.ChatMessage
	}{
		{
			title: "Switching from finance to software",
			messages: []model.ChatMessage{
				{Role: constant.ChatMessageRoleUser, Content: "I've spent six years in finance but I want to move into software engineering. Where do I start?"},
				{Role: constant.ChatMessageRoleAssistant, Content: "That's a very achievable transition. Start by picking one language and building small projects. Your finance domain knowledge is an asset for fintech roles. Next steps: 1) choose a language, 2) set a 12-week study plan, 3) build a portfolio project."},
			},
		},
		{
			title: constant.DefaultSessionTitle,
			messages: []model.ChatMessage{
				{Role: constant.ChatMessageRoleUser, Content: "How do I ask for a raise?"},
			},
		},
	}

	for _, s := range sessions {
		color.Yellow("\nSession: %s", s.title)

		session := model.ChatSession{
			Id:        uuid.New(),
			UserId:    demoUser.Id,
			Title:     s.title,
			CreatedAt: now,
		}
		if err := db.Create(&session).Error; err != nil {
			color.Red("Failed to seed session: %v", err)
			os.Exit(1)
		}

		for i, m := range s.messages {
			msg := model.ChatMessage{
				Id:            uuid.New(),
				ChatSessionId: session.Id,
				SenderId:      demoUser.Id,
				Role:          m.Role,
				Content:       m.Content,
				// Spread timestamps so ordering is deterministic.
				CreatedAt: now.Add(time.Duration(i) * time.Second),
			}
			if err := db.Create(&msg).Error; err != nil {
				color.Red("Failed to seed message: %v", err)
				os.Exit(1)
			}
			color.Green("  + %s message", msg.Role)
		}
	}

	color.Cyan("\n✅ Seeding complete")
}
