package dialect

// Postgres returns the PostgreSQL dialect.
func Postgres() *Dialect {
	return &Dialect{
		Name:       "postgres",
		DriverName: "pgx",

		QuoteOpen:  `"`,
		QuoteClose: `"`,

		SupportsUniqueConstraints:    true,
		SupportsCheckConstraints:     true,
		SupportsExclusionConstraints: true,
		SupportsIdentityColumns:      true,
		SupportsEnumTypes:            true,
		SupportsDeferrableFK:         true,
		SupportsPartialIndexes:       true,
		SupportsStoredGenerated:      true,
		SupportsPipelining:           true,

		NameSegments:        2,
		MaxIdentifierLength: 63,

		BeginStmt:         "BEGIN",
		CommitStmt:        "COMMIT",
		RollbackStmt:      "ROLLBACK",
		SupportsIsolation: true,

		IdentityClause: "GENERATED BY DEFAULT AS IDENTITY",
		UUIDDefault:    "gen_random_uuid()",

		RenameColumnStmt:    RenameColumnStandard,
		SupportsRenameIndex: true,
	}
}

// MySQL returns the MySQL dialect.
func MySQL() *Dialect {
	return &Dialect{
		Name:       "mysql",
		DriverName: "mysql",

		QuoteOpen:  "`",
		QuoteClose: "`",

		SupportsCheckConstraints:   true,
		SupportsIdentityColumns:    true,
		IdentityRequiresPrimaryKey: true,
		SupportsInlineEnum:         true,
		SupportsStoredGenerated:    true,
		SupportsEngines:            true,

		NameSegments:          2,
		UsesDatabaseQualifier: true,
		MaxIdentifierLength:   64,

		BeginStmt:            "START TRANSACTION",
		CommitStmt:           "COMMIT",
		RollbackStmt:         "ROLLBACK",
		IsolationBeforeBegin: true,
		SupportsIsolation:    true,

		IdentityClause: "AUTO_INCREMENT",
		UUIDDefault:    "(uuid())",

		RenameColumnStmt:    RenameColumnStandard,
		SupportsRenameIndex: true,
	}
}

// MariaDB returns the MariaDB dialect. It shares the mysql driver but keeps
// the pre-8.0 CHANGE syntax for column renames and recreates indexes on
// rename.
func MariaDB() *Dialect {
	d := MySQL()
	d.Name = "mariadb"
	d.RenameColumnStmt = RenameColumnChange
	d.SupportsRenameIndex = false
	d.UUIDDefault = "(uuid())"
	return d
}

// SQLServer returns the SQL Server dialect.
func SQLServer() *Dialect {
	return &Dialect{
		Name:       "sqlserver",
		DriverName: "sqlserver",

		QuoteOpen:  "[",
		QuoteClose: "]",

		SupportsUniqueConstraints:  true,
		SupportsCheckConstraints:   true,
		SupportsIdentityColumns:    true,
		IdentityRequiresPrimaryKey: true,
		SupportsStoredGenerated:    true,

		NameSegments:                     3,
		UsesDatabaseQualifier:            true,
		RequiresDBSwitchForCrossDBRename: true,
		MaxIdentifierLength:              128,

		BeginStmt:            "BEGIN TRANSACTION",
		CommitStmt:           "COMMIT",
		RollbackStmt:         "ROLLBACK",
		IsolationBeforeBegin: true,
		SupportsIsolation:    true,

		IdentityClause: "IDENTITY(1,1)",
		UUIDDefault:    "NEWSEQUENTIALID()",

		RenameColumnStmt: RenameColumnSpRename,
	}
}

// SQLite returns the SQLite dialect.
func SQLite() *Dialect {
	return &Dialect{
		Name:       "sqlite",
		DriverName: "sqlite",

		QuoteOpen:  `"`,
		QuoteClose: `"`,

		SupportsIdentityColumns:    true,
		IdentityRequiresPrimaryKey: true,
		SupportsPartialIndexes:     true,
		SupportsStoredGenerated:    true,

		NameSegments: 1,

		BeginStmt:    "BEGIN",
		CommitStmt:   "COMMIT",
		RollbackStmt: "ROLLBACK",

		// Increment is expressed via INTEGER PRIMARY KEY AUTOINCREMENT in
		// the column definition, not a standalone clause.
		IdentityClause: "AUTOINCREMENT",

		RenameColumnStmt: RenameColumnStandard,
	}
}
