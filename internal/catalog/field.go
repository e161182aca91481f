package catalog

import (
	"fmt"
)

type FieldType string

const (
	FieldText         FieldType = "text"
	FieldTextarea     FieldType = "textarea"
	FieldNumber       FieldType = "number"
	FieldCurrency     FieldType = "currency"
	FieldDate         FieldType = "date"
	FieldSelect       FieldType = "select"
	FieldCheckbox     FieldType = "checkbox"
	FieldRadio        FieldType = "radio"
	FieldFile         FieldType = "file"
	FieldGroup        FieldType = "group"
	FieldTable        FieldType = "table"
	FieldDynamicTable FieldType = "dynamic_table"
)

// FieldTypes lists every supported field type in declaration order.
var FieldTypes = []FieldType{
	FieldText, FieldTextarea, FieldNumber, FieldCurrency, FieldDate, FieldSelect,
	FieldCheckbox, FieldRadio, FieldFile, FieldGroup, FieldTable, FieldDynamicTable,
}

func (t FieldType) Valid() bool {
	for _, ft := range FieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

func (t FieldType) IsNumeric() bool {
	return t == FieldNumber || t == FieldCurrency
}

func (t FieldType) IsTable() bool {
	return t == FieldTable || t == FieldDynamicTable
}

type Option struct {
	Value string `json:"value" bson:"value"`
	Label string `json:"label" bson:"label"`
}

type CalculationMetadata struct {
	IsCalculatedField bool     `json:"isCalculatedField" bson:"isCalculatedField"`
	Formula           string   `json:"formula,omitempty" bson:"formula,omitempty"`
	Dependencies      []string `json:"dependencies,omitempty" bson:"dependencies,omitempty"`
	Precision         *int     `json:"precision,omitempty" bson:"precision,omitempty"`
	AutoGenerated     bool     `json:"autoGenerated,omitempty" bson:"autoGenerated,omitempty"`
}

type ConditionalLogic struct {
	Field    string `json:"field" bson:"field"`
	Operator string `json:"operator" bson:"operator"`
	Value    any    `json:"value,omitempty" bson:"value,omitempty"`
}

// FieldDefinition is the canonical description of a template field. FieldType
// selects which of the type-specific payloads (SubFields, TableConfig, Options)
// may be populated; Check enforces that.
type FieldDefinition struct {
	FieldID       string      `json:"fieldId" bson:"fieldId"`
	TechnicalName string      `json:"technicalName" bson:"technicalName"`
	UIDisplayName string      `json:"uiDisplayName" bson:"uiDisplayName"`
	FieldType     FieldType   `json:"fieldType" bson:"fieldType"`
	IsRequired    bool        `json:"isRequired" bson:"isRequired"`
	IsReadonly    bool        `json:"isReadonly" bson:"isReadonly"`
	Validation    *Validation `json:"validation,omitempty" bson:"validation,omitempty"`
	SortOrder     int         `json:"sortOrder" bson:"sortOrder"`
	DefaultValue  any         `json:"defaultValue,omitempty" bson:"defaultValue,omitempty"`
	Placeholder   string      `json:"placeholder,omitempty" bson:"placeholder,omitempty"`

	Options     []Option          `json:"options,omitempty" bson:"options,omitempty"`
	SubFields   []FieldDefinition `json:"subFields,omitempty" bson:"subFields,omitempty"`
	TableConfig *TableConfig      `json:"tableConfig,omitempty" bson:"tableConfig,omitempty"`

	Formula             string               `json:"formula,omitempty" bson:"formula,omitempty"`
	CalculationMetadata *CalculationMetadata `json:"calculationMetadata,omitempty" bson:"calculationMetadata,omitempty"`
	ConditionalLogic    *ConditionalLogic    `json:"conditionalLogic,omitempty" bson:"conditionalLogic,omitempty"`
}

func (f *FieldDefinition) IsCalculated() bool {
	return f.CalculationMetadata != nil && f.CalculationMetadata.IsCalculatedField
}

// CalcFormula returns the formula from calculationMetadata, falling back to the
// top-level formula attribute older templates use.
func (f *FieldDefinition) CalcFormula() string {
	if f.CalculationMetadata != nil && f.CalculationMetadata.Formula != "" {
		return f.CalculationMetadata.Formula
	}
	return f.Formula
}

// Locked reports whether the field never accepts user input: read-only or
// auto-generated. Locked fields skip validation and stay disabled.
func (f *FieldDefinition) Locked() bool {
	if f.IsReadonly {
		return true
	}
	return f.CalculationMetadata != nil && f.CalculationMetadata.AutoGenerated
}

// Check verifies that the payloads present match the field type, for the
// field and every sub-field below it.
func (f *FieldDefinition) Check() error {
	if err := f.CheckSelf(); err != nil {
		return err
	}
	for i := range f.SubFields {
		if err := f.SubFields[i].Check(); err != nil {
			return fmt.Errorf("group %s: %w", f.FieldID, err)
		}
	}
	return nil
}

// CheckSelf is Check without descending into group sub-fields.
func (f *FieldDefinition) CheckSelf() error {
	if f.FieldID == "" {
		return fmt.Errorf("field %q: empty fieldId", f.TechnicalName)
	}

	switch f.FieldType {
	case FieldText, FieldTextarea, FieldNumber, FieldCurrency, FieldDate, FieldFile:
		if len(f.Options) > 0 {
			return fmt.Errorf("field %s: options not allowed for %s", f.FieldID, f.FieldType)
		}
		if len(f.SubFields) > 0 || f.TableConfig != nil {
			return fmt.Errorf("field %s: %s cannot carry subFields or tableConfig", f.FieldID, f.FieldType)
		}
	case FieldSelect, FieldRadio, FieldCheckbox:
		if len(f.SubFields) > 0 || f.TableConfig != nil {
			return fmt.Errorf("field %s: %s cannot carry subFields or tableConfig", f.FieldID, f.FieldType)
		}
		if f.FieldType != FieldCheckbox && len(f.Options) == 0 {
			return fmt.Errorf("field %s: %s requires options", f.FieldID, f.FieldType)
		}
	case FieldGroup:
		if f.TableConfig != nil || len(f.Options) > 0 {
			return fmt.Errorf("field %s: group cannot carry tableConfig or options", f.FieldID)
		}
	case FieldTable, FieldDynamicTable:
		if len(f.SubFields) > 0 || len(f.Options) > 0 {
			return fmt.Errorf("field %s: table cannot carry subFields or options", f.FieldID)
		}
		if f.TableConfig == nil {
			return fmt.Errorf("field %s: %s requires tableConfig", f.FieldID, f.FieldType)
		}
		if err := f.TableConfig.Check(f.FieldType); err != nil {
			return fmt.Errorf("field %s: %w", f.FieldID, err)
		}
	default:
		return fmt.Errorf("field %s: unknown fieldType %q", f.FieldID, f.FieldType)
	}

	if f.IsCalculated() && f.CalcFormula() == "" {
		return fmt.Errorf("field %s: calculated field without formula", f.FieldID)
	}

	return nil
}

// Walk visits fields depth-first, descending into group sub-fields.
func Walk(fields []FieldDefinition, fn func(f *FieldDefinition)) {
	for i := range fields {
		fn(&fields[i])
		if len(fields[i].SubFields) > 0 {
			Walk(fields[i].SubFields, fn)
		}
	}
}
