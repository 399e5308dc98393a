package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Migration represents a single schema migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	IsApplied bool
	AppliedAt time.Time
}

// Migrator applies embedded migrations in order, tracking them in a table.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a migrator with the embedded migration set.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Pool().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns all applied migrations.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	query := fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName)

	rows, err := m.conn.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, isApplied := applied[mig.Version]; isApplied {
			continue
		}
		if mig.UpSQL == "" {
			return fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			insertQuery := fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName)
			_, err := tx.Exec(ctx, insertQuery, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}
	return nil
}

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_learners", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_catalog", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_progress", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_achievements", UpSQL: migration004Up, DownSQL: migration004Down},
		{Version: 5, Name: "seed_achievement_catalog", UpSQL: migration005Up, DownSQL: migration005Down},
	}
}

const migration001Up = `
CREATE TABLE learners (
	id UUID PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	xp_points INTEGER NOT NULL DEFAULT 0 CHECK (xp_points >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX idx_learners_xp ON learners (xp_points DESC, created_at ASC);
`

const migration001Down = `DROP TABLE learners;`

const migration002Up = `
CREATE TABLE learning_paths (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE tracks (
	id UUID PRIMARY KEY,
	path_id UUID NOT NULL REFERENCES learning_paths (id),
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	duration_weeks INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE courses (
	id UUID PRIMARY KEY,
	track_id UUID NOT NULL REFERENCES tracks (id),
	name TEXT NOT NULL,
	level_number INTEGER NOT NULL DEFAULT 0,
	duration_days INTEGER NOT NULL DEFAULT 0,
	order_in_track INTEGER NOT NULL,
	milestone_tag TEXT,
	UNIQUE (track_id, order_in_track)
);

CREATE UNIQUE INDEX idx_courses_milestone_tag ON courses (milestone_tag)
	WHERE milestone_tag IS NOT NULL;

CREATE TABLE assessments (
	id UUID PRIMARY KEY,
	course_id UUID NOT NULL REFERENCES courses (id),
	assessment_type TEXT NOT NULL
		CHECK (assessment_type IN ('theory', 'practice', 'project', 'live_coding')),
	description TEXT NOT NULL DEFAULT '',
	weight_percentage INTEGER NOT NULL CHECK (weight_percentage BETWEEN 0 AND 100)
);

CREATE INDEX idx_assessments_course ON assessments (course_id);
`

const migration002Down = `
DROP TABLE assessments;
DROP TABLE courses;
DROP TABLE tracks;
DROP TABLE learning_paths;
`

const migration003Up = `
CREATE TABLE user_progress (
	id UUID PRIMARY KEY,
	learner_id UUID NOT NULL REFERENCES learners (id),
	course_id UUID NOT NULL REFERENCES courses (id),
	status TEXT NOT NULL DEFAULT 'locked'
		CHECK (status IN ('locked', 'unlocked', 'in_progress', 'completed', 'failed')),
	score_theory INTEGER NOT NULL DEFAULT 0,
	score_practice INTEGER NOT NULL DEFAULT 0,
	score_project INTEGER NOT NULL DEFAULT 0,
	score_live_coding INTEGER NOT NULL DEFAULT 0,
	total_score INTEGER NOT NULL DEFAULT 0,
	attempts INTEGER NOT NULL DEFAULT 0 CHECK (attempts >= 0),
	unlocked_at TIMESTAMPTZ,
	last_attempt_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	UNIQUE (learner_id, course_id),
	CHECK (total_score = score_theory + score_practice + score_project + score_live_coding)
);

CREATE INDEX idx_user_progress_learner ON user_progress (learner_id);
CREATE INDEX idx_user_progress_learner_status ON user_progress (learner_id, status);
`

const migration003Down = `DROP TABLE user_progress;`

const migration004Up = `
CREATE TABLE achievements (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	criteria TEXT NOT NULL DEFAULT '',
	xp_bonus INTEGER NOT NULL DEFAULT 0 CHECK (xp_bonus >= 0)
);

CREATE TABLE user_achievements (
	id UUID PRIMARY KEY,
	learner_id UUID NOT NULL REFERENCES learners (id),
	achievement_id UUID NOT NULL REFERENCES achievements (id),
	unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (learner_id, achievement_id)
);

CREATE INDEX idx_user_achievements_learner ON user_achievements (learner_id);
`

const migration004Down = `
DROP TABLE user_achievements;
DROP TABLE achievements;
`

// The achievement catalog ships with the platform; rule names in the
// achievement package must match these rows.
const migration005Up = `
INSERT INTO achievements (id, name, description, criteria, xp_bonus) VALUES
	(gen_random_uuid(), 'JavaScript Novice', 'Complete LEVEL 1 of JavaScript Mastery Track.', 'Complete the JavaScript Fundamentals course.', 25),
	(gen_random_uuid(), 'PHP Beginner', 'Complete LEVEL 1 of PHP Mastery Track.', 'Complete the PHP Fundamentals course.', 25),
	(gen_random_uuid(), 'Web Dev Starter', 'Complete LEVEL 1 of Web Development Stack.', 'Complete the HTML5 Semantics & Accessibility course.', 30),
	(gen_random_uuid(), 'Five Courses Down!', 'Successfully complete any 5 courses.', 'Complete 5 courses across any track.', 50),
	(gen_random_uuid(), 'First Track Completed!', 'Complete all courses in any single track.', 'Finish all levels of any track.', 200),
	(gen_random_uuid(), 'JS Functions Pro', 'Master JavaScript functions.', 'Complete LEVEL 2: Functions & Scope.', 30),
	(gen_random_uuid(), 'DOM Manipulator', 'Conquer DOM Manipulation in JavaScript.', 'Complete LEVEL 4: DOM Manipulation.', 35),
	(gen_random_uuid(), 'PHP OOP Basics', 'Grasp Object-Oriented Programming in PHP.', 'Complete LEVEL 3: OOP in PHP (Basic).', 30),
	(gen_random_uuid(), 'Full-Stack Foundation', 'Complete the foundational backend and frontend courses in the Web Dev Stack.', 'Complete the JavaScript DOM & Events and MySQL & Full-Stack Integration courses.', 100),
	(gen_random_uuid(), 'Halfway There!', 'Complete 6 courses in any single 12-course track.', 'Complete 6 courses of a single track with at least 10 courses.', 75);
`

const migration005Down = `DELETE FROM achievements;`
