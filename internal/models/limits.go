package models

import "fmt"

// Input limits enforced before any write reaches storage.
const (
	MaxEntityNameLen         = 256
	MaxObservationLen        = 64 * 1024
	MaxObservationsPerEntity = 1000
	MaxBatchEntities         = 100
	MaxBatchRelations        = 100
	MaxTraversalDepth        = 50
	MaxTraversalNodes        = 10000
	MaxTagsPerEntity         = 100
	MaxTagLen                = 64
	MaxProjectNameLen        = 64
)

// ValidationKind names the limit a ValidationError reports.
type ValidationKind int

const (
	EntityNameTooLong ValidationKind = iota + 1
	EmptyEntityName
	ObservationTooLong
	EmptyObservation
	TooManyObservations
	TooManyEntities
	TooManyRelations
	TraversalDepthTooLarge
	TooManyTags
	TagTooLong
	EmptyTag
	ProjectNameTooLong
	InvalidProjectName
)

// ValidationError reports an input that broke a size, count or depth limit.
// Got and Max are zero for the empty-input kinds.
type ValidationError struct {
	Kind ValidationKind
	Got  int
	Max  int
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case EntityNameTooLong:
		return fmt.Sprintf("entity name too long: %d chars (max %d)", e.Got, e.Max)
	case EmptyEntityName:
		return "entity name cannot be empty"
	case ObservationTooLong:
		return fmt.Sprintf("observation too long: %d bytes (max %d)", e.Got, e.Max)
	case EmptyObservation:
		return "observation cannot be empty"
	case TooManyObservations:
		return fmt.Sprintf("too many observations: %d (max %d)", e.Got, e.Max)
	case TooManyEntities:
		return fmt.Sprintf("too many entities in batch: %d (max %d)", e.Got, e.Max)
	case TooManyRelations:
		return fmt.Sprintf("too many relations in batch: %d (max %d)", e.Got, e.Max)
	case TraversalDepthTooLarge:
		return fmt.Sprintf("traversal depth too large: %d (max %d)", e.Got, e.Max)
	case TooManyTags:
		return fmt.Sprintf("too many tags: %d (max %d)", e.Got, e.Max)
	case TagTooLong:
		return fmt.Sprintf("tag too long: %d chars (max %d)", e.Got, e.Max)
	case EmptyTag:
		return "tag cannot be empty"
	case ProjectNameTooLong:
		return fmt.Sprintf("project name too long: %d chars (max %d)", e.Got, e.Max)
	case InvalidProjectName:
		return "project name must be non-empty and use only letters, digits, '_' or '-'"
	}
	return "validation failed"
}

func ValidateEntityName(name string) error {
	if name == "" {
		return &ValidationError{Kind: EmptyEntityName}
	}
	if len(name) > MaxEntityNameLen {
		return &ValidationError{Kind: EntityNameTooLong, Got: len(name), Max: MaxEntityNameLen}
	}
	return nil
}

func ValidateObservation(content string) error {
	if content == "" {
		return &ValidationError{Kind: EmptyObservation}
	}
	if len(content) > MaxObservationLen {
		return &ValidationError{Kind: ObservationTooLong, Got: len(content), Max: MaxObservationLen}
	}
	return nil
}

// ValidateObservationCount checks the number of observations an entity would hold.
func ValidateObservationCount(count int) error {
	if count > MaxObservationsPerEntity {
		return &ValidationError{Kind: TooManyObservations, Got: count, Max: MaxObservationsPerEntity}
	}
	return nil
}

func ValidateTag(tag string) error {
	if tag == "" {
		return &ValidationError{Kind: EmptyTag}
	}
	if len(tag) > MaxTagLen {
		return &ValidationError{Kind: TagTooLong, Got: len(tag), Max: MaxTagLen}
	}
	return nil
}

// ValidateTagCount checks the number of tags an entity would hold.
func ValidateTagCount(count int) error {
	if count > MaxTagsPerEntity {
		return &ValidationError{Kind: TooManyTags, Got: count, Max: MaxTagsPerEntity}
	}
	return nil
}

// ValidateProjectName checks length first, then the allowed character set.
func ValidateProjectName(name string) error {
	if len(name) > MaxProjectNameLen {
		return &ValidationError{Kind: ProjectNameTooLong, Got: len(name), Max: MaxProjectNameLen}
	}
	if !ValidProjectName(name) {
		return &ValidationError{Kind: InvalidProjectName}
	}
	return nil
}

func ValidateTraversalDepth(depth int) error {
	if depth > MaxTraversalDepth {
		return &ValidationError{Kind: TraversalDepthTooLarge, Got: depth, Max: MaxTraversalDepth}
	}
	return nil
}

func ValidateBatchEntities(count int) error {
	if count > MaxBatchEntities {
		return &ValidationError{Kind: TooManyEntities, Got: count, Max: MaxBatchEntities}
	}
	return nil
}

func ValidateBatchRelations(count int) error {
	if count > MaxBatchRelations {
		return &ValidationError{Kind: TooManyRelations, Got: count, Max: MaxBatchRelations}
	}
	return nil
}

// ValidateEntity checks every limit that applies to a stored entity.
func ValidateEntity(e *Entity) error {
	if err := ValidateEntityName(e.Name); err != nil {
		return err
	}
	if err := ValidateObservationCount(len(e.Observations)); err != nil {
		return err
	}
	for _, o := range e.Observations {
		if err := ValidateObservation(o.Content); err != nil {
			return err
		}
	}
	if err := ValidateTagCount(len(e.Tags)); err != nil {
		return err
	}
	for _, t := range e.Tags {
		if err := ValidateTag(t); err != nil {
			return err
		}
	}
	return nil
}
