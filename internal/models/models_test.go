package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_SubjectsIncludesRequester(t *testing.T) {
	r := Request{RequesterID: 7, MemberIDs: []int64{8, 7, 9}}
	subjects := r.Subjects()
	require.Len(t, subjects, 3)
	assert.Equal(t, MemberSubject(7), subjects[0])
}

func TestRequest_SubjectsForOrg(t *testing.T) {
	r := Request{RequesterID: 7, IsForOrg: true, MemberIDs: []int64{8}}
	subjects := r.Subjects()
	require.Len(t, subjects, 1)
	assert.True(t, subjects[0].IsOrg())
}

func TestRule_EscalationRequiresBothFields(t *testing.T) {
	step, window := 1, 3

	_, _, ok := Rule{IsScalable: true, EscalationValue: &step}.Escalation()
	assert.False(t, ok)

	_, _, ok = Rule{IsScalable: false, EscalationValue: &step, EscalationWindowDays: &window}.Escalation()
	assert.False(t, ok)

	s, w, ok := Rule{IsScalable: true, EscalationValue: &step, EscalationWindowDays: &window}.Escalation()
	require.True(t, ok)
	assert.Equal(t, 1, s)
	assert.Equal(t, 3, w)
}

func TestSubjectFromRow(t *testing.T) {
	id := int64(5)

	s, err := SubjectFromRow("member", &id)
	require.NoError(t, err)
	assert.Equal(t, MemberSubject(5), s)

	s, err = SubjectFromRow("org", nil)
	require.NoError(t, err)
	assert.True(t, s.IsOrg())

	_, err = SubjectFromRow("member", nil)
	assert.Error(t, err)

	_, err = SubjectFromRow("galaxy", nil)
	assert.Error(t, err)
}
