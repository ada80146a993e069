package forms

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shipment struct {
	Name    string  `json:"name" validate:"min=3"`
	Weight  int     `json:"weight" validate:"gt=0"`
	Price   float64 `json:"price" validate:"gte=0"`
	Mode    string  `json:"mode" validate:"oneof=air sea"`
	Flight  string  `json:"flight"`
	Vessel  string  `json:"vessel"`
	Pickup  string  `json:"pickup" validate:"datetimelocal"`
	Website string  `json:"website" validate:"omitempty,portfolio"`
}

func shipmentDefinition() Definition {
	return NewDefinition(
		NewField("name", KindText, "Name"),
		NewField("weight", KindInteger, "Weight"),
		NewField("price", KindDecimal, "Price"),
		NewField("mode", KindEnum, "Mode", WithDefault("air"),
			WithOptions(Option{Value: "air", Label: "Air"}, Option{Value: "sea", Label: "Sea"})),
		NewField("flight", KindText, "Flight"),
		NewField("vessel", KindText, "Vessel"),
		NewField("pickup", KindDateTime, "Pickup"),
		NewField("website", KindText, "Website", WithType(FieldURL)),
	)
}

var shipmentPolicy = Policy{{
	Field: "mode",
	Dependents: map[string][]string{
		"air": {"flight"},
		"sea": {"vessel"},
	},
}}

func shipmentSchema() *RecordSchema[shipment] {
	return NewRecordSchema(shipmentDefinition(),
		Rule[shipment]{
			Path:    "flight",
			Refs:    []string{"mode", "flight"},
			Message: "Flight is required",
			Fails:   func(s *shipment) bool { return s.Mode == "air" && s.Flight == "" },
		},
		Rule[shipment]{
			Path:    "name",
			Refs:    []string{"name", "weight"},
			Message: "heavy shipments need a long name",
			Fails:   func(s *shipment) bool { return s.Weight > 100 && len(s.Name) < 6 },
		},
	).WithMessage("pickup", "invalid date")
}

func validShipment() Values {
	return Values{
		"name":    "Boxes",
		"weight":  12,
		"price":   9.5,
		"mode":    "air",
		"flight":  "LA123",
		"vessel":  "",
		"pickup":  "2024-05-01T10:30",
		"website": "",
	}
}

func TestFieldCoerce(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		raw    string
		want   any
		wantOK bool
	}{
		{"integer", KindInteger, "42", 42, true},
		{"integer trimmed", KindInteger, " 7 ", 7, true},
		{"integer empty", KindInteger, "", 0, true},
		{"integer text", KindInteger, "abc", "abc", false},
		{"decimal", KindDecimal, "2.5", 2.5, true},
		{"decimal text", KindDecimal, "x", "x", false},
		{"datetime keeps digits", KindDateTime, "2024", "2024", true},
		{"text keeps digits", KindText, "0123456789", "0123456789", true},
		{"enum", KindEnum, "sea", "sea", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NewField("f", tt.kind, "F").Coerce(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestFieldNormalize(t *testing.T) {
	intField := NewField("n", KindInteger, "N")
	textField := NewField("t", KindText, "T")

	v, ok := intField.Normalize(float64(3))
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = intField.Normalize(3.5)
	assert.False(t, ok)

	v, ok = textField.Normalize(float64(1234567890))
	assert.True(t, ok)
	assert.Equal(t, "1234567890", v)

	v, ok = textField.Normalize(nil)
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestDefinitionDefaults(t *testing.T) {
	def := shipmentDefinition()

	assert.Equal(t, []string{"name", "weight", "price", "mode", "flight", "vessel", "pickup", "website"}, def.Names())
	assert.Equal(t, Values{
		"name": "", "weight": 0, "price": 0.0, "mode": "air",
		"flight": "", "vessel": "", "pickup": "", "website": "",
	}, def.Defaults())
	assert.Equal(t, 3, def.Position("mode"))
	assert.Equal(t, -1, def.Position("missing"))
}

func TestDefinitionDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewDefinition(NewField("a", KindText, "A"), NewField("a", KindText, "A"))
	})
}

func TestSchemaValid(t *testing.T) {
	res := shipmentSchema().Validate(validShipment())

	assert.True(t, res.Valid())
	assert.NoError(t, res.Err())
	assert.Equal(t, 12, res.Values["weight"])
}

func TestSchemaCollectsEveryIssue(t *testing.T) {
	values := validShipment()
	values["name"] = "Bo"
	values["weight"] = 0
	values["pickup"] = ""
	values["flight"] = ""

	res := shipmentSchema().Validate(values)

	want := Issues{
		{Path: "name", Message: "string must contain at least 3 character(s)", Kind: FieldFormat},
		{Path: "weight", Message: "number must be greater than 0", Kind: FieldFormat},
		{Path: "pickup", Message: "invalid date", Kind: FieldFormat},
		{Path: "flight", Message: "flight is required", Kind: CrossField},
	}
	if diff := cmp.Diff(want, res.Issues); diff != "" {
		t.Errorf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaSkipsRulesOnFailedRefs(t *testing.T) {
	values := validShipment()
	values["name"] = "Bo"
	values["weight"] = 500

	res := shipmentSchema().Validate(values)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, FieldFormat, res.Issues[0].Kind)
}

func TestSchemaNonNumericInput(t *testing.T) {
	values := validShipment()
	values["weight"] = "heavy"

	res := shipmentSchema().Validate(values)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, Issue{Path: "weight", Message: "expected number, received string", Kind: FieldFormat}, res.Issues[0])
}

func TestSchemaPortfolio(t *testing.T) {
	for _, url := range []string{"example.com", "https://www.example.com/me", "http://me.dev/work"} {
		values := validShipment()
		values["website"] = url
		assert.True(t, shipmentSchema().Validate(values).Valid(), url)
	}

	values := validShipment()
	values["website"] = "not a url"
	res := shipmentSchema().Validate(values)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "invalid url", res.Issues[0].Message)
}

func TestSchemaIdempotent(t *testing.T) {
	values := validShipment()
	values["name"] = ""
	values["mode"] = "rail"

	schema := shipmentSchema()
	first := schema.Validate(values)
	second := schema.Validate(values)

	assert.False(t, first.Valid())
	if diff := cmp.Diff(first.Issues, second.Issues); diff != "" {
		t.Errorf("second run differs:\n%s", diff)
	}
}

func TestIssueError(t *testing.T) {
	issues := Issues{NewIssue("name", "Too Short", FieldFormat)}

	err := issues.Err()
	var ie *IssueError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "name : too short", ie.Issues[0].String())
	assert.Nil(t, Issues(nil).Err())
}

func TestDiscriminatorOnChanged(t *testing.T) {
	def := shipmentDefinition()
	values := validShipment()
	values["vessel"] = "Ever Given"

	out := shipmentPolicy.OnChanged(def, values, "mode", "air", "sea")
	assert.Equal(t, "", out["flight"])
	assert.Equal(t, "Ever Given", out["vessel"])
	assert.Equal(t, "LA123", values["flight"], "input must not be mutated")

	same := shipmentPolicy.OnChanged(def, values, "mode", "air", "air")
	assert.Equal(t, values, same)

	other := shipmentPolicy.OnChanged(def, values, "name", "a", "b")
	assert.Equal(t, values, other)
}

func TestDiscriminatorOnChangedKeepsShared(t *testing.T) {
	d := Discriminator{Field: "mode", Dependents: map[string][]string{
		"air": {"flight", "pickup"},
		"sea": {"vessel", "pickup"},
	}}
	values := validShipment()

	out := d.OnChanged(shipmentDefinition(), values, "air", "sea")

	assert.Equal(t, "", out["flight"])
	assert.Equal(t, "2024-05-01T10:30", out["pickup"], "shared by both values")
}

func TestPolicyPrune(t *testing.T) {
	values := validShipment()
	values["vessel"] = "Ever Given"

	out := shipmentPolicy.Prune(shipmentDefinition(), values)
	assert.Equal(t, "", out["vessel"])
	assert.Equal(t, "LA123", out["flight"])
	assert.Equal(t, "Ever Given", values["vessel"], "input must not be mutated")

	values["mode"] = ""
	out = shipmentPolicy.Prune(shipmentDefinition(), values)
	assert.Equal(t, "", out["flight"])
	assert.Equal(t, "", out["vessel"])
	assert.Equal(t, "Boxes", out["name"])
}

func TestPolicyVisible(t *testing.T) {
	values := validShipment()

	assert.True(t, shipmentPolicy.Visible(values, "flight"))
	assert.False(t, shipmentPolicy.Visible(values, "vessel"))
	assert.True(t, shipmentPolicy.Visible(values, "name"))

	values["mode"] = "sea"
	names := make([]string, 0)
	for _, f := range shipmentPolicy.VisibleFields(shipmentDefinition(), values) {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"name", "weight", "price", "mode", "vessel", "pickup", "website"}, names)
}

func TestSelectionSet(t *testing.T) {
	s := NewSelectionSet("css", "css")
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.Toggle("html"))
	assert.False(t, s.Toggle("css"))
	assert.Equal(t, []string{"html"}, s.Items())

	s.Set("js", true)
	s.Set("html", false)
	assert.Equal(t, "js", s.Join(" , "))

	check := RequireSelection(s, "skill", "Select at least one skill")
	assert.Nil(t, check(nil))
	s.Clear()
	issue := check(nil)
	require.NotNil(t, issue)
	assert.Equal(t, Issue{Path: "skill", Message: "select at least one skill", Kind: Selection}, *issue)
}

func TestGate(t *testing.T) {
	var g Gate
	assert.Equal(t, Editing, g.State())

	g.Dismiss()
	assert.Equal(t, Editing, g.State())

	g.Reject()
	assert.Equal(t, Invalid, g.State())
	g.Edit()
	assert.Equal(t, Editing, g.State())

	g.Accept()
	assert.Equal(t, "accepted", g.State().String())
	g.Dismiss()
	assert.Equal(t, Editing, g.State())
}

func TestPreview(t *testing.T) {
	values := Values{"name": "Boxes", "weight": 0, "price": 1.5, "flight": "", "tags": []string{"a", "b"}}

	got := Preview(values, []string{"name", "weight", "price", "flight", "tags", "missing"})

	want := []Entry{{Key: "name", Value: "Boxes"}, {Key: "price", Value: "1.5"}, {Key: "tags", Value: "a,b"}}
	assert.Equal(t, want, got)
}
