package main

// IndexField is one field of a Firestore composite index.
type IndexField struct {
	FieldPath string `json:"fieldPath"`
	Order     string `json:"order,omitempty"`
}

// Index is a Firestore composite index as reported by gcloud.
type Index struct {
	Name            string       `json:"name"`
	CollectionGroup string       `json:"collectionGroup"`
	Fields          []IndexField `json:"fields"`
	QueryScope      string       `json:"queryScope"`
}

// IndexConfig is one index the service requires.
type IndexConfig struct {
	CollectionGroup string
	Fields          []IndexField
}
