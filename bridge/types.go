package bridge

// ColumnMetadata describes one column of a query result.
type ColumnMetadata struct {
	Name  string `json:"name"`
	Type  string `json:"type"` // Declared SQLite type, "UNKNOWN" when the column has none
	Index int    `json:"index"`
}

// QueryResult is returned by Execute and by prepared statements.
type QueryResult struct {
	RowsAffected int64            `json:"rowsAffected"`
	InsertID     int64            `json:"insertId,omitempty"` // Only set when the statement changed rows
	Columns      []string         `json:"-"`
	Rows         [][]any          `json:"rows"`
	Metadata     []ColumnMetadata `json:"metadata"`
}

// RawResult is returned by ExecuteRaw. Rows carry values in column order
// without any column metadata.
type RawResult struct {
	RowsAffected int64   `json:"rowsAffected"`
	InsertID     int64   `json:"insertId,omitempty"`
	Rows         [][]any `json:"rows"`
}

// BatchCommand is one entry of a batch. Params holds one parameter set per
// execution; an empty Params runs the statement once without parameters.
type BatchCommand struct {
	SQL    string
	Params [][]any
}

// BatchResult is returned by ExecuteBatch.
type BatchResult struct {
	RowsAffected int64 `json:"rowsAffected"`
}

// ImportResult is returned by ImportFile.
type ImportResult struct {
	RowsAffected int64 `json:"rowsAffected"`
	Commands     int   `json:"commands"`
}

// OpenOptions holds the optional parameters of Open.
type OpenOptions struct {
	CRSQLitePath  string // Loaded as an extension on every new connection when set
	EncryptionKey string // Applied with PRAGMA key; ignored by builds without SQLCipher
}
