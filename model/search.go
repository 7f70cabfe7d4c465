package model

import "time"

const DefaultUserID = "default_user"

// SearchDefinition records the term expression last used for a named search.
// SearchName is the natural key.
type SearchDefinition struct {
	SearchName string    `json:"search_name" bson:"_id"`
	UserID     string    `json:"user_id" bson:"user_id"`
	Expression string    `json:"search_phrase" bson:"search_phrase"`
	CreatedAt  time.Time `json:"creation_date" bson:"creation_date"`
}
