// Package postgres implements the PostgreSQL persistence layer for ClassLens.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE CLUSTERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create clusters table
-- Version: 001

-- Cluster definitions authored by course staff. Each cluster is a set of
-- per-dimension ranges; the ranges live in JSONB because the dimension
-- set changes whenever the course structure changes.
CREATE TABLE IF NOT EXISTS clusters (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    ranges JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT cluster_name_not_blank CHECK (length(trim(name)) > 0)
);

CREATE INDEX IF NOT EXISTS idx_clusters_name ON clusters(name);
CREATE INDEX IF NOT EXISTS idx_clusters_updated_at ON clusters(updated_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS clusters;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE STUDENT VECTORS AND CLASSIFICATIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create student vectors and classifications
-- Version: 002

-- Extracted performance vectors, one row per student per run generation.
-- Values map dimension keys to scores; missing dimensions mean zero.
CREATE TABLE IF NOT EXISTS student_vectors (
    student_id VARCHAR(100) PRIMARY KEY,
    dimensions JSONB NOT NULL DEFAULT '{}'::jsonb,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_student_vectors_updated_at ON student_vectors(updated_at DESC);

-- Per-student classification: the distance to every cluster defined at
-- run time. Replaced wholesale by each batch run.
CREATE TABLE IF NOT EXISTS student_classifications (
    student_id VARCHAR(100) PRIMARY KEY,
    distances JSONB NOT NULL DEFAULT '{}'::jsonb,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_student_classifications_updated_at ON student_classifications(updated_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS student_classifications;
DROP TABLE IF EXISTS student_vectors;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE CLUSTER STATISTICS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create cluster statistics
-- Version: 003

-- Aggregated statistics of the latest batch run. A single current row
-- (generation = 'current') is replaced on every successful run.
CREATE TABLE IF NOT EXISTS cluster_statistics (
    generation VARCHAR(20) PRIMARY KEY,
    max_distance INTEGER NOT NULL,
    counts JSONB NOT NULL DEFAULT '{}'::jsonb,
    intersections JSONB NOT NULL DEFAULT '{}'::jsonb,
    computed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_max_distance CHECK (max_distance >= 0)
);

-- Batch run audit log, kept for the operations dashboard.
CREATE TABLE IF NOT EXISTS pipeline_runs (
    id UUID PRIMARY KEY,
    course_id VARCHAR(100) NOT NULL,
    status VARCHAR(20) NOT NULL,
    students INTEGER NOT NULL DEFAULT 0,
    classified INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMP WITH TIME ZONE NOT NULL,
    finished_at TIMESTAMP WITH TIME ZONE,
    error TEXT,

    CONSTRAINT valid_run_status CHECK (status IN ('running', 'completed', 'failed'))
);

CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started_at ON pipeline_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_course_id ON pipeline_runs(course_id, started_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS pipeline_runs;
DROP TABLE IF EXISTS cluster_statistics;
`
