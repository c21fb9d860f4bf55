// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the seed admin (admin@acme.com) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"taskplane/internal/config"
	"taskplane/internal/db"
	membershipdomain "taskplane/internal/membership/domain"
	membershiprepo "taskplane/internal/membership/repository"
	orgdomain "taskplane/internal/organization/domain"
	orgrepo "taskplane/internal/organization/repository"
	"taskplane/internal/security"
	taskdomain "taskplane/internal/task/domain"
	taskrepo "taskplane/internal/task/repository"
	userdomain "taskplane/internal/user/domain"
	userrepo "taskplane/internal/user/repository"
)

const (
	seedOrgID        = "seed-org-acme"
	seedOrgSubdomain = "acme"
	seedAdminID      = "seed-user-admin"
	seedAdminEmail   = "admin@acme.com"
	seedMemberID     = "seed-user-member"
	seedMemberEmail  = "member@acme.com"
	seedPassword     = "admin123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	orgs := orgrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	tasks := taskrepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, seedAdminEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", seedAdminEmail)
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(seedPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()

	if err := orgs.Create(ctx, &orgdomain.Org{
		ID:        seedOrgID,
		Subdomain: seedOrgSubdomain,
		Name:      "Acme",
		CreatedAt: now,
	}); err != nil {
		log.Fatalf("create org: %v", err)
	}

	seedUsers := []struct {
		id, email string
		role      membershipdomain.Role
	}{
		{seedAdminID, seedAdminEmail, membershipdomain.RoleAdmin},
		{seedMemberID, seedMemberEmail, membershipdomain.RoleMember},
	}
	for _, su := range seedUsers {
		if err := users.Create(ctx, &userdomain.User{
			ID:           su.id,
			Email:        su.email,
			PasswordHash: passwordHash,
			CreatedAt:    now,
		}); err != nil {
			log.Fatalf("create user %s: %v", su.email, err)
		}
		if err := memberships.Create(ctx, &membershipdomain.Membership{
			UserID:    su.id,
			OrgID:     seedOrgID,
			Role:      su.role,
			CreatedAt: now,
		}); err != nil {
			log.Fatalf("create membership for %s: %v", su.email, err)
		}
	}

	sampleTasks := []struct {
		title, description string
		status             taskdomain.Status
		assignee           string
	}{
		{"Set up the project board", "Agree on columns and workflow.", taskdomain.StatusDone, seedAdminID},
		{"Draft the release checklist", "Cover rollback and comms.", taskdomain.StatusDoing, seedMemberID},
		{"Review onboarding docs", "", taskdomain.StatusTodo, ""},
	}
	for i, st := range sampleTasks {
		created := now.Add(time.Duration(i) * time.Second)
		if err := tasks.Create(ctx, &taskdomain.Task{
			ID:          uuid.New().String(),
			OrgID:       seedOrgID,
			Title:       st.title,
			Description: st.description,
			Status:      st.status,
			AssigneeID:  st.assignee,
			CreatedAt:   created,
			UpdatedAt:   created,
		}); err != nil {
			log.Fatalf("create task %q: %v", st.title, err)
		}
	}

	log.Printf("Seed complete: org %s with %s / %s (password %q)", seedOrgSubdomain, seedAdminEmail, seedMemberEmail, seedPassword)
}
