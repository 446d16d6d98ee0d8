package plugin

// On-disk layout of a plugin directory.
const (
	ManifestFile = "pyproject.toml"
	EntryFile    = "main.py"
	EnvDirName   = ".venv"
	SnippetsDir  = "snippets"
	CommandsDir  = "commands"
	ManualsDir   = "manuals"
)
