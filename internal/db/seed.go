package db

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedAttachmentTypes = []string{"secure", "anxious", "avoidant", "disorganized"}

var seedCities = []string{"Berlin", "Lisbon", "Warsaw", "Madrid"}

var seedTagPool = []string{
	"hiking", "cooking", "jazz", "cinema", "board games",
	"climbing", "travel", "photography", "yoga", "sci-fi",
}

// SeedTestData resets the database and populates it with demo users,
// blocks, and matches in every lifecycle state.
//
// Behavior:
//  1. Clears existing rows in all four tables.
//  2. Creates 20 active users with hashed passwords, attachment types,
//     cities and personality tags; two of them with onboarding incomplete.
//  3. Adds a couple of block relations.
//  4. Creates pending proposals plus a few confirmed matches with their
//     conversations.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"conversations", "matches", "blocks", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE matches AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('matches', 'users', 'blocks')")
	}

	log.Println("Cleared existing data")

	// --- Seed users ---
	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		// pick 3 random tags
		tags := make([]string, 0, 3)
		for _, idx := range r.Perm(len(seedTagPool))[:3] {
			tags = append(tags, seedTagPool[idx])
		}
		rawTags, _ := json.Marshal(tags)

		user := User{
			Username:        fmt.Sprintf("user%d", i),
			Email:           fmt.Sprintf("user%d@example.com", i),
			PasswordHash:    string(hash),
			Active:          true,
			AttachmentType:  seedAttachmentTypes[i%len(seedAttachmentTypes)],
			City:            seedCities[i%len(seedCities)],
			PersonalityTags: string(rawTags),
			TestCompleted:   i > 2, // users 1-2 have not finished onboarding
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}
	log.Println("Seeded 20 users.")

	var users []User
	if err := db.Order("id ASC").Find(&users).Error; err != nil {
		return err
	}

	// --- Seed blocks ---
	blocks := []Block{
		{BlockerID: users[3].ID, BlockedID: users[7].ID},
		{BlockerID: users[12].ID, BlockedID: users[5].ID},
	}
	if err := db.Create(&blocks).Error; err != nil {
		return fmt.Errorf("failed to seed blocks: %w", err)
	}

	// --- Seed matches ---
	// Pending proposals between consecutive test-completed users, every
	// third pair confirmed with a conversation.
	counter := 0
	for i := 2; i < len(users)-1; i += 2 {
		a, b := users[i], users[i+1]

		status := MatchPending
		reason := "compatible profiles"
		if counter%3 == 0 {
			status = MatchAccepted
			reason = "mutual confirmation"
		}

		m := Match{
			UserAID:     a.ID,
			UserBID:     b.ID,
			Score:       50 + r.Intn(51),
			MatchReason: reason,
			Status:      status,
		}
		if err := db.Create(&m).Error; err != nil {
			return fmt.Errorf("failed to seed match: %w", err)
		}

		if status == MatchAccepted {
			conv := Conversation{ID: uuid.NewString(), MatchID: m.ID}
			if err := db.Create(&conv).Error; err != nil {
				return fmt.Errorf("failed to seed conversation: %w", err)
			}
		}
		counter++
	}
	log.Printf("Seeded %d matches.", counter)

	return nil
}
