// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"authcore/internal/core/id"
	"authcore/internal/domain/access"
	"authcore/internal/domain/auth"
	"authcore/internal/infrastructure/storage/postgres"
	"authcore/internal/infrastructure/storage/postgres/access_repo"
	"authcore/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	catalog := access.DefaultCatalog()

	adminID, err := seedAdminPrincipal(ctx, pool, log)
	if err != nil {
		log.Fatalw("failed to seed admin principal", "error", err)
	}

	roleIDs, err := seedRoles(ctx, txManager, catalog, log)
	if err != nil {
		log.Fatalw("failed to seed roles", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, txManager, log, adminID, roleIDs); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedAdminPrincipal(ctx context.Context, pool *postgres.Pool, log *logger.Logger) (id.ID, error) {
	adminLogin := os.Getenv("ADMIN_LOGIN")
	if adminLogin == "" {
		adminLogin = "admin"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	// Check if admin already exists
	var existingID id.ID
	err := pool.Pool.QueryRow(ctx,
		`SELECT principal_id FROM credentials WHERE login = $1`,
		adminLogin,
	).Scan(&existingID)
	if err == nil {
		log.Infow("admin principal already exists", "login", adminLogin, "principal_id", existingID)
		return existingID, nil
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return id.Nil(), fmt.Errorf("check admin exists: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return id.Nil(), fmt.Errorf("hash password: %w", err)
	}

	principalID := id.New()
	now := time.Now()

	_, err = pool.Pool.Exec(ctx, `
		INSERT INTO principals (id, name, kind, admin, active, locked, created_at, updated_at)
		VALUES ($1, 'System Admin', $2, true, true, false, $3, $3)
	`, principalID, access.PrincipalUser, now)
	if err != nil {
		return id.Nil(), fmt.Errorf("insert admin principal: %w", err)
	}

	cred := auth.NewCredential(principalID, adminLogin, string(passwordHash))
	_, err = pool.Pool.Exec(ctx, `
		INSERT INTO credentials (
			id, principal_id, login, password_hash,
			failed_login_attempts, created_at, updated_at
		) VALUES ($1, $2, $3, $4, 0, $5, $6)
	`, cred.ID, cred.PrincipalID, cred.Login, cred.PasswordHash, cred.CreatedAt, cred.UpdatedAt)
	if err != nil {
		return id.Nil(), fmt.Errorf("insert admin credential: %w", err)
	}

	log.Infow("admin principal created", "login", adminLogin, "principal_id", principalID)
	return principalID, nil
}

// seedRoles creates the builtin roles plus a standard role per scope.
func seedRoles(ctx context.Context, txManager *postgres.TxManager, catalog *access.Catalog, log *logger.Logger) (map[string]id.ID, error) {
	roleRepo := access_repo.NewRoleRepo(txManager)

	existing, err := roleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	roleIDs := make(map[string]id.ID, len(existing))
	for _, r := range existing {
		roleIDs[r.Name] = r.ID
	}
	if len(roleIDs) > 0 {
		log.Infow("roles already seeded", "count", len(roleIDs))
		return roleIDs, nil
	}

	roles := make([]*access.Role, 0, 8)

	anonymous, err := access.NewBuiltinRole(catalog, access.BuiltinAnonymous, "Anonymous",
		"view_project", "view_work_packages", "view_news")
	if err != nil {
		return nil, err
	}
	roles = append(roles, anonymous)

	nonMember, err := access.NewBuiltinRole(catalog, access.BuiltinNonMember, "Non member",
		"view_project", "view_work_packages", "view_news", "view_wiki_pages")
	if err != nil {
		return nil, err
	}
	roles = append(roles, nonMember)

	member, err := access.NewRole(catalog, "Member", access.RoleProject,
		"view_project", "view_work_packages", "add_work_packages", "edit_work_packages",
		"comment_work_packages", "view_members", "view_news", "view_wiki_pages",
		"view_time_entries", "log_time", "save_queries")
	if err != nil {
		return nil, err
	}
	roles = append(roles, member)

	projectAdmin, err := access.NewRole(catalog, "Project admin", access.RoleProject,
		"view_project", "select_project_modules", "edit_project", "archive_project",
		"view_members", "manage_members", "view_work_packages", "add_work_packages",
		"edit_work_packages", "delete_work_packages", "comment_work_packages",
		"share_work_packages", "assign_versions", "save_queries", "manage_public_queries",
		"view_meetings", "create_meetings", "view_news", "manage_news",
		"view_time_entries", "log_time", "view_wiki_pages")
	if err != nil {
		return nil, err
	}
	roles = append(roles, projectAdmin)

	userCreator, err := access.NewRole(catalog, "User creator", access.RoleGlobal,
		"create_user", "manage_user")
	if err != nil {
		return nil, err
	}
	roles = append(roles, userCreator)

	wpViewer, err := access.NewRole(catalog, "Work package viewer", access.RoleWorkPackage,
		"view_work_packages")
	if err != nil {
		return nil, err
	}
	roles = append(roles, wpViewer)

	wpCommenter, err := access.NewRole(catalog, "Work package commenter", access.RoleWorkPackage,
		"view_work_packages", "comment_work_packages")
	if err != nil {
		return nil, err
	}
	roles = append(roles, wpCommenter)

	wpEditor, err := access.NewRole(catalog, "Work package editor", access.RoleWorkPackage,
		"view_work_packages", "comment_work_packages", "edit_work_packages")
	if err != nil {
		return nil, err
	}
	roles = append(roles, wpEditor)

	err = txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, role := range roles {
			if err := roleRepo.Create(ctx, role); err != nil {
				return fmt.Errorf("create role %s: %w", role.Name, err)
			}
			roleIDs[role.Name] = role.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infow("roles seeded", "count", len(roles))
	return roleIDs, nil
}

// seedDemoData creates a demo project with work packages, a group of demo
// users and their project memberships.
func seedDemoData(
	ctx context.Context,
	pool *postgres.Pool,
	txManager *postgres.TxManager,
	log *logger.Logger,
	adminID id.ID,
	roleIDs map[string]id.ID,
) error {
	now := time.Now()

	projectID := id.New()
	_, err := pool.Pool.Exec(ctx, `
		INSERT INTO projects (id, identifier, name, active, public, created_at, updated_at)
		VALUES ($1, 'demo', 'Demo project', true, true, $2, $2)
	`, projectID, now)
	if err != nil {
		return fmt.Errorf("insert demo project: %w", err)
	}

	modules := [][]any{
		{projectID, access.ModuleWorkPackageTracking},
		{projectID, access.ModuleNews},
		{projectID, access.ModuleWiki},
	}
	inserter := postgres.NewBatchInserter(txManager)
	if _, err := inserter.CopyFromSlice(ctx, "project_modules",
		[]string{"project_id", "module"}, modules); err != nil {
		return fmt.Errorf("insert project modules: %w", err)
	}

	groupID := id.New()
	users := make([]id.ID, 3)
	principalRows := [][]any{
		{groupID, "Demo team", string(access.PrincipalGroup), false, true, false, now, now},
	}
	for i := range users {
		users[i] = id.New()
		principalRows = append(principalRows, []any{
			users[i], fmt.Sprintf("Demo user %d", i+1), string(access.PrincipalUser),
			false, true, false, now, now,
		})
	}
	if _, err := inserter.CopyFromSlice(ctx, "principals",
		[]string{"id", "name", "kind", "admin", "active", "locked", "created_at", "updated_at"},
		principalRows); err != nil {
		return fmt.Errorf("insert demo principals: %w", err)
	}

	groupLinks := make([][]any, len(users))
	for i, userID := range users {
		groupLinks[i] = []any{groupID, userID}
	}
	if _, err := inserter.CopyFromSlice(ctx, "group_users",
		[]string{"group_id", "user_id"}, groupLinks); err != nil {
		return fmt.Errorf("insert group members: %w", err)
	}

	wpRows := make([][]any, 5)
	for i := range wpRows {
		wpRows[i] = []any{id.New(), projectID, fmt.Sprintf("Demo work package %d", i+1), now, now}
	}
	if _, err := inserter.CopyFromSlice(ctx, "work_packages",
		[]string{"id", "project_id", "subject", "created_at", "updated_at"}, wpRows); err != nil {
		return fmt.Errorf("insert demo work packages: %w", err)
	}

	// Project memberships: admin runs the project, demo users are members.
	memberRole := roleIDs["Member"]
	adminRole := roleIDs["Project admin"]
	membershipRows := [][]any{
		{id.New(), adminID, adminRole, string(access.ContextProject), projectID, nil, nil, now, now},
	}
	for _, userID := range users {
		membershipRows = append(membershipRows, []any{
			id.New(), userID, memberRole, string(access.ContextProject), projectID, nil, nil, now, now,
		})
	}
	if _, err := inserter.CopyFromSlice(ctx, "memberships",
		[]string{"id", "principal_id", "role_id", "scope_kind", "project_id", "entity_id", "inherited_from", "created_at", "updated_at"},
		membershipRows); err != nil {
		return fmt.Errorf("insert demo memberships: %w", err)
	}

	log.Infow("demo data seeded",
		"project_id", projectID,
		"group_id", groupID,
		"users", len(users),
		"work_packages", len(wpRows),
	)
	return nil
}
