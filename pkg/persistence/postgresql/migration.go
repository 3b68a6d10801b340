package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE projects (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				owner VARCHAR(255) NOT NULL,
				website_url TEXT NOT NULL DEFAULT '',
				api_whitelist JSONB NOT NULL DEFAULT '[]',
				workflow JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_projects_owner ON projects(owner);
			CREATE INDEX idx_projects_created_at ON projects(created_at);
			CREATE INDEX idx_projects_deleted_at ON projects(deleted_at);
		`,
		2: `
			-- Persona settings for the AI agent system prompt
			ALTER TABLE projects ADD COLUMN persona JSONB;
		`,
	}
}
