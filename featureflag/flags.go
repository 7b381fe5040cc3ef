package featureflag

type Flag string

const (
	// Puts outside of a space bounds are dropped without an error response.
	FlagSilentOutOfBounds Flag = "SILENT_OUT_OF_BOUNDS"

	// Clients can only join the spaces created from the templates file.
	FlagDisableSpaceCreate Flag = "DISABLE_SPACE_CREATE"

	// The /spaces debug endpoints respond with 404.
	FlagDisableSpacesEndpoint Flag = "DISABLE_SPACES_ENDPOINT"
)
