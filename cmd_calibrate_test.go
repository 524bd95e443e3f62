package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskQuestions(t *testing.T) {
	in := strings.NewReader("9\nabc\n3\n3\n4\n4\n5\n")
	var out bytes.Buffer

	scores, err := askQuestions(in, &out)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 4, 4, 5}, scores)
	assert.Equal(t, 2, strings.Count(out.String(), "Please enter a number"))
	assert.Contains(t, out.String(), "1/5")
}

func TestAskQuestionsAborted(t *testing.T) {
	_, err := askQuestions(strings.NewReader("1\n"), &bytes.Buffer{})
	assert.EqualError(t, err, "questionnaire aborted")
}
