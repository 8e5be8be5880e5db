package errs

import "github.com/m-mizutani/goerr/v2"

var (
	// Client errors (4xx)
	TagNotFound       = goerr.NewTag("not_found")       // 404
	TagValidation     = goerr.NewTag("validation")      // 400
	TagInvalidRequest = goerr.NewTag("invalid_request") // 400
	TagConflict       = goerr.NewTag("conflict")        // 409

	// Server errors (5xx)
	TagInternal = goerr.NewTag("internal") // 500
	TagExternal = goerr.NewTag("external") // 502/503
	TagDatabase = goerr.NewTag("database") // 500 (specific to DB errors)
)

// RepositoryKey distinguishes which repository backend produced an error.
var RepositoryKey = goerr.NewTypedKey[string]("repository")
