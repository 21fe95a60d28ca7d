package factory_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/generic"
)

func TestParseRules_EmptyDocumentKeepsDefaults(t *testing.T) {
	f := factory.NewRulesFactory()

	rules, err := f.ParseRules(`{}`)

	require.NoError(t, err)
	assert.Equal(t, factory.DefaultRules(), rules)
}

func TestParseRules_Overrides(t *testing.T) {
	// GIVEN: a document that moves the login window and the cycle
	doc := `{
		"attendance": {"login_start": "08:30", "full_present_limit": "08:45", "min_hours": 4},
		"payroll": {"cycle_start_day": 26, "days_per_month": 26}
	}`
	f := factory.NewRulesFactory()

	// WHEN
	rules, err := f.ParseRules(doc)

	// THEN: overridden fields change, the rest stay default
	require.NoError(t, err)
	assert.Equal(t, generic.NewTimeOfDay(8, 30), rules.Attendance.LoginStart)
	assert.Equal(t, generic.NewTimeOfDay(8, 45), rules.Attendance.FullPresentLimit)
	assert.Equal(t, generic.NewTimeOfDay(18, 0), rules.Attendance.FullDayLogout)
	assert.Equal(t, 4, rules.Attendance.MinHours)
	assert.Equal(t, 9, rules.Attendance.FullDayHours)
	assert.Equal(t, 26, rules.Payroll.CycleStartDay)
	assert.Equal(t, 26, rules.Payroll.DaysPerMonth)
}

func TestParseRules_Invalid(t *testing.T) {
	f := factory.NewRulesFactory()

	tests := map[string]string{
		"malformed":          `{"attendance": `,
		"bad time":           `{"attendance": {"login_start": "9am"}}`,
		"limit before start": `{"attendance": {"login_start": "10:00"}}`,
		"cycle day 30":       `{"payroll": {"cycle_start_day": 30}}`,
		"zero divisor":       `{"payroll": {"days_per_month": 0}}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.ParseRules(doc)
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_RoundTrip(t *testing.T) {
	f := factory.NewRulesFactory()
	rules := factory.DefaultRules()
	rules.Attendance.AutoLogoutAt = generic.NewTimeOfDay(19, 0)

	b, err := json.Marshal(f.ToJSON(rules))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, b, 0o600))

	loaded, err := f.LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, rules, loaded)

	_, err = f.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
