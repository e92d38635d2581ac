package common

// AppName is shown in the CLI banner and used to derive default file names.
const AppName = "garagekeeper"

// DefaultDatabaseFile is the local SQLite file holding collections and
// sync settings when no path is configured.
const DefaultDatabaseFile = "data/garage.db"
