package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// docBase is where per-code documentation lives in the repository.
const docBase = "docs/errors.md#"

func docURL(code string) string {
	return docBase + code
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Config errors (E100-E199)
	"E100": {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Detail:     "No dragula.json or dragula.toml was found in the directory or any parent.",
		Suggestion: "Run from the project directory or pass --config.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid config syntax",
		Detail:   "The config file could not be parsed.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A config value is out of range or inconsistent with another value.",
	},
	"E103": {
		Category:   CategoryConfig,
		Message:    "Duplicate bag name",
		Detail:     "Every bag must have a unique name within a service.",
		Suggestion: "Rename one of the bags.",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Unsupported config format",
		Detail:   "Config files must end in .json or .toml.",
	},

	// Protocol errors (E200-E299)
	"E200": {
		Category:   CategoryProtocol,
		Message:    "Protocol version mismatch",
		Detail:     "The client speaks a protocol major version this server does not.",
		Suggestion: "Reload the page to fetch a matching client.",
	},
	"E201": {
		Category: CategoryProtocol,
		Message:  "Malformed frame",
		Detail:   "A frame or its payload could not be decoded.",
	},
	"E202": {
		Category: CategoryProtocol,
		Message:  "Unexpected frame type",
		Detail:   "The client sent a frame type that is not valid at this point of the session.",
	},

	// Session errors (E300-E399)
	"E300": {
		Category: CategorySession,
		Message:  "Session not found",
		Detail:   "The session ID is unknown or the session has ended.",
	},
	"E301": {
		Category: CategorySession,
		Message:  "Unknown bag",
		Detail:   "The action names a bag the session does not serve.",
	},
	"E302": {
		Category: CategorySession,
		Message:  "Unknown node",
		Detail:   "The action addresses a HID that is no longer rendered. The client is probably a render behind.",
	},
	"E303": {
		Category: CategorySession,
		Message:  "Item not draggable",
		Detail:   "The engine refused to start a drag on this item.",
	},
	"E304": {
		Category:   CategorySession,
		Message:    "Too many sessions",
		Detail:     "The server reached its session limit.",
		Suggestion: "Raise server.maxSessions or add capacity.",
	},
	"E305": {
		Category: CategorySession,
		Message:  "Action queue full",
		Detail:   "The client sent actions faster than the session could apply them.",
	},
	"E306": {
		Category: CategorySession,
		Message:  "Action failed",
		Detail:   "The session could not apply a client action.",
	},

	// Snapshot errors (E400-E499)
	"E400": {
		Category:   CategorySnapshot,
		Message:    "Snapshot store unavailable",
		Detail:     "The snapshot store could not be opened.",
		Suggestion: "Check snapshot.dir permissions or the S3 bucket and credentials.",
	},
	"E401": {
		Category: CategorySnapshot,
		Message:  "Snapshot write failed",
	},
	"E402": {
		Category: CategorySnapshot,
		Message:  "Snapshot not found",
	},

	// CLI errors (E500-E599)
	"E500": {
		Category:   CategoryCLI,
		Message:    "Invalid replay script",
		Detail:     "A replay script is a JSON array of steps, each naming a bag, an action and item or container references.",
		Suggestion: "See `dragula replay --help` for the step format.",
	},
	"E501": {
		Category: CategoryCLI,
		Message:  "Replay step failed",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns every registered code.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}
