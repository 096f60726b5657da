package entities

import "gorm.io/datatypes"

// Prompt represents a stored video prompt idea with its quality scores.
type Prompt struct {
	ID               string         `gorm:"type:varchar(64);primaryKey"`
	Prompt           string         `gorm:"type:text;not null"`
	PromptHash       string         `gorm:"type:char(64);uniqueIndex;not null"`
	CutenessScore    float64        `gorm:"not null"`
	AlignmentScore   float64        `gorm:"not null"`
	VisualScore      float64        `gorm:"not null"`
	UniquenessScore  float64        `gorm:"not null"`
	UsageCount       int            `gorm:"not null;default:0"`
	Style            string         `gorm:"type:varchar(16)"`
	Tags             datatypes.JSON `gorm:"type:jsonb"`
	Species          datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt        int64          `gorm:"autoCreateTime:milli"`
}

func (Prompt) TableName() string {
	return "prompts"
}
