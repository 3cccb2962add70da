package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cyp0633/libcalevents/model"
	"github.com/samber/mo"
)

// ErrMissingRequiredField is returned when a write lacks a mandatory field.
var ErrMissingRequiredField = errors.New("missing required field")

// FieldError names the field a write was missing.
type FieldError struct {
	Field  string
	Detail string
}

func (e *FieldError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", ErrMissingRequiredField, e.Field, e.Detail)
	}
	return fmt.Sprintf("%s: %s", ErrMissingRequiredField, e.Field)
}

func (e *FieldError) Unwrap() error {
	return ErrMissingRequiredField
}

// CalendarSource is the account a new calendar belongs to.
type CalendarSource struct {
	Name           mo.Option[string]
	Type           mo.Option[string]
	IsLocalAccount bool
}

// CalendarInput is a request to create a calendar.
type CalendarInput struct {
	Source       mo.Option[CalendarSource]
	Name         mo.Option[string]
	Title        mo.Option[string]
	Color        mo.Option[model.Color]
	AccessLevel  mo.Option[string]
	OwnerAccount mo.Option[string]
}

// BuildCalendarColumns validates input and returns the columns to insert
// together with the account the insert must be performed as.
func BuildCalendarColumns(input CalendarInput) (Columns, SyncAccount, error) {
	source, ok := input.Source.Get()
	if !ok {
		return nil, SyncAccount{}, &FieldError{Field: "source"}
	}
	for _, f := range []struct {
		name    string
		present bool
	}{
		{"name", input.Name.IsPresent()},
		{"title", input.Title.IsPresent()},
		{"color", input.Color.IsPresent()},
		{"accessLevel", input.AccessLevel.IsPresent()},
		{"ownerAccount", input.OwnerAccount.IsPresent()},
	} {
		if !f.present {
			return nil, SyncAccount{}, &FieldError{Field: f.name}
		}
	}

	accountName, ok := source.Name.Get()
	if !ok {
		return nil, SyncAccount{}, &FieldError{Field: "source.name"}
	}
	accountType := AccountTypeLocal
	if !source.IsLocalAccount {
		if accountType, ok = source.Type.Get(); !ok {
			return nil, SyncAccount{}, &FieldError{Field: "source.type", Detail: "required unless isLocalAccount is set"}
		}
	}

	columns := Columns{
		ColAccountName:         accountName,
		ColAccountType:         accountType,
		ColCalendarColor:       int64(input.Color.MustGet()),
		ColAccessLevel:         int64(AccessLevelFromString(input.AccessLevel.MustGet())),
		ColOwnerAccount:        input.OwnerAccount.MustGet(),
		ColName:                input.Name.MustGet(),
		ColCalendarDisplayName: input.Title.MustGet(),
	}
	return columns, SyncAccount{Name: accountName, Type: accountType}, nil
}

// AccessLevelFromString maps an access level name to its value. Unknown names
// map to none.
func AccessLevelFromString(name string) model.AccessLevel {
	level, _ := model.ParseAccessLevel(name)
	return level
}

// CalendarFromRow reads a calendar row.
func CalendarFromRow(row Row) model.Calendar {
	level, _ := row.Int64(ColAccessLevel)
	color, _ := row.Int64(ColCalendarColor)

	return model.Calendar{
		ID:                    row.StringOr(ColID, ""),
		Title:                 row.StringOr(ColCalendarDisplayName, ""),
		Source:                row.StringOr(ColAccountName, ""),
		Type:                  row.StringOr(ColAccountType, ""),
		IsPrimary:             row.Bool(ColIsPrimary),
		AccessLevel:           model.AccessLevel(level),
		AllowedAvailabilities: ParseAllowedAvailabilities(row.StringOr(ColAllowedAvailability, "")),
		Color:                 model.Color(uint32(color) & 0xFFFFFF),
	}
}

var availabilityNames = map[string]model.Availability{
	"AVAILABILITY_BUSY":      model.AvailabilityBusy,
	"AVAILABILITY_FREE":      model.AvailabilityFree,
	"AVAILABILITY_TENTATIVE": model.AvailabilityTentative,
}

// ParseAllowedAvailabilities reads the comma-separated allowed availability
// column. Entries are numeric ids or AVAILABILITY_* names; anything else is
// skipped.
func ParseAllowedAvailabilities(s string) []model.Availability {
	out := []model.Availability{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var a model.Availability
		if n, err := strconv.Atoi(part); err == nil {
			a = model.Availability(n)
		} else if named, ok := availabilityNames[part]; ok {
			a = named
		} else {
			continue
		}

		switch a {
		case model.AvailabilityBusy, model.AvailabilityFree, model.AvailabilityTentative:
			out = append(out, a)
		}
	}
	return out
}

// FormatAllowedAvailabilities is the inverse of ParseAllowedAvailabilities.
func FormatAllowedAvailabilities(list []model.Availability) string {
	parts := make([]string, len(list))
	for i, a := range list {
		parts[i] = strconv.Itoa(int(a))
	}
	return strings.Join(parts, ",")
}
