package exitcodes

// Exit codes for pcsd-remove-file
// These codes form the contract with the pcsd request handler and operators
const (
	Success        = 0 // Request handled; includes a file that was already absent
	InvalidConfig  = 2 // Configuration file invalid or missing
	InvalidRequest = 3 // Unknown file type or request rejected by validation
	RuntimeError   = 4 // Runtime error outside the removal itself (database, context)
	Unexpected     = 5 // Removal attempted but failed
)
