package dav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	cases := []struct {
		path string
		want Resource
	}{
		{"/", Resource{Type: ResourceServiceRoot}},
		{"", Resource{Type: ResourceServiceRoot}},
		{"/principals/", Resource{Type: ResourcePrincipalSet}},
		{"/principals/alice/", Resource{Type: ResourcePrincipal, UserID: "alice"}},
		{"/calendars", Resource{Type: ResourceHomeSet}},
		{"/calendars/", Resource{Type: ResourceHomeSet}},
		{"/calendars/12/", Resource{Type: ResourceCollection, ProjectID: "12"}},
		{"/calendars/12/34.ics", Resource{Type: ResourceObject, ProjectID: "12", ObjectID: "34"}},
		{"/calendars/12/calendar.ics", Resource{Type: ResourceObject, ProjectID: "12", ObjectID: "calendar"}},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			got, err := ParsePath(tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParsePathRejects(t *testing.T) {
	for _, path := range []string{
		"/unknown/",
		"/unknown/x/",
		"/calendars/12/34",
		"/calendars/12/34.txt",
		"/calendars/12/34.ics/extra",
	} {
		t.Run(path, func(t *testing.T) {
			_, err := ParsePath(path)
			assert.Error(t, err)
		})
	}
}

func TestIsProjectCalendar(t *testing.T) {
	res, err := ParsePath("/calendars/9/calendar.ics")
	require.NoError(t, err)
	assert.True(t, res.IsProjectCalendar())

	res, err = ParsePath("/calendars/9/8.ics")
	require.NoError(t, err)
	assert.False(t, res.IsProjectCalendar())
}

func TestHrefs(t *testing.T) {
	assert.Equal(t, "/calendars/5/", CollectionHref("5"))
	assert.Equal(t, "/calendars/5/7.ics", ObjectHref("5", "7"))
}
