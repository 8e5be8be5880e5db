package main

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// ParseCollectionFromName extracts the collection group from a full index
// name like "projects/p/databases/d/collectionGroups/overrides/indexes/XXXX".
func ParseCollectionFromName(name string) string {
	parts := strings.Split(name, "/")
	for i, part := range parts {
		if part == "collectionGroups" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

// GetExistingIndexes lists the database's composite indexes via gcloud.
func GetExistingIndexes(projectID, databaseID string) ([]Index, error) {
	// #nosec G204
	cmd := exec.Command("gcloud", "firestore", "indexes", "composite", "list",
		"--project="+projectID,
		"--database="+databaseID,
		"--format=json")

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute gcloud command: %w", err)
	}

	var indexes []Index
	if err := json.Unmarshal(output, &indexes); err != nil {
		return nil, fmt.Errorf("failed to parse indexes: %w", err)
	}

	for i := range indexes {
		if indexes[i].CollectionGroup == "" {
			indexes[i].CollectionGroup = ParseCollectionFromName(indexes[i].Name)
		}
	}

	return indexes, nil
}

// CreateIndex creates one composite index via gcloud.
func CreateIndex(projectID, databaseID string, config IndexConfig) error {
	fmt.Printf("Creating index for %s with fields %v...\n", config.CollectionGroup, GetFieldPaths(config.Fields))

	args := []string{
		"firestore", "indexes", "composite", "create",
		"--project=" + projectID,
		"--database=" + databaseID,
		"--collection-group=" + config.CollectionGroup,
		"--query-scope=COLLECTION",
	}
	for _, field := range config.Fields {
		args = append(args, fmt.Sprintf("--field-config=order=%s,field-path=%s", field.Order, field.FieldPath))
	}

	// #nosec G204
	cmd := exec.Command("gcloud", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to create index: %w, output: %s", err, string(output))
	}

	return nil
}

// IndexExists reports whether an equivalent index is already present.
// Firestore appends an implicit __name__ field to every composite index.
func IndexExists(existingIndexes []Index, required IndexConfig) bool {
	for _, existing := range existingIndexes {
		if existing.CollectionGroup != required.CollectionGroup {
			continue
		}

		withName := append(required.Fields, IndexField{
			FieldPath: "__name__",
			Order:     "*",
		})
		if FieldsMatch(existing.Fields, withName) {
			return true
		}
	}
	return false
}

func FieldsMatch(existing, required []IndexField) bool {
	if len(existing) != len(required) {
		return false
	}

	existingPaths := make(map[string]string)
	for _, f := range existing {
		if f.FieldPath == "__name__" {
			existingPaths[f.FieldPath] = "*"
		} else {
			existingPaths[f.FieldPath] = f.Order
		}
	}

	matchedPaths := make(map[string]bool)
	for _, f := range required {
		if existingPaths[f.FieldPath] != f.Order {
			return false
		}
		matchedPaths[f.FieldPath] = true
	}

	for _, f := range existing {
		if !matchedPaths[f.FieldPath] {
			return false
		}
	}

	return true
}

func GetFieldPaths(fields []IndexField) []string {
	paths := make([]string, len(fields))
	for i, f := range fields {
		paths[i] = f.FieldPath
	}
	return paths
}
