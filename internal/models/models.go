// package models defines the data model for the media playlist web service
package models

import (
	"time"
)

// Model defines the base interface for all persistent models in the service.
// Implementations include [User], [Playlist] and [PlaylistItem].
type Model interface {
	GetID() string      // GetID returns the unique identifier for this model
	Created() time.Time // Created returns when this model was created
	Validate() error    // Validate checks if the model's data is valid and returns an error if not
}
