package csvimport

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport(t *testing.T) {
	r := NewReport()

	var wg sync.WaitGroup
	for i := 2; i < 12; i++ {
		wg.Add(1)
		go func(line int) {
			defer wg.Done()
			switch {
			case line%5 == 0:
				r.Error(line, "n", "missing person")
			case line%3 == 0:
				r.Warning(line, "n", "skipped role")
			default:
				r.Success(line, "n")
			}
		}(i)
	}
	wg.Wait()

	success, warnings, errors := r.Counts()
	assert.Equal(t, 10, success+warnings+errors)
	assert.Equal(t, 2, errors)   // lines 5, 10
	assert.Equal(t, 3, warnings) // lines 3, 6, 9

	results := r.Results()
	for i := 1; i < len(results); i++ {
		assert.Less(t, results[i-1].Line, results[i].Line)
	}
	assert.Len(t, r.Issues(), 5)
}

func TestReport_WriteCSV(t *testing.T) {
	r := NewReport()
	r.Error(3, "4711", "section 12 not found")
	r.Success(2, "4710")

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf, ';'))
	assert.Equal(t,
		"line;navision_id;status;message\n2;4710;success;\n3;4711;error;section 12 not found\n",
		buf.String())
}

func TestErrorCollection(t *testing.T) {
	ec := NewErrorCollection(2)
	ec.AddRequiredError(2, "name")
	ec.AddTypeError(2, "birthday", "date", "soon")
	ec.AddRequiredError(3, "name")

	assert.Equal(t, 3, ec.TotalCount())
	assert.Len(t, ec.Errors(), 2)
	assert.True(t, ec.IsTruncated())
	assert.Len(t, ec.ForRow(2), 2)
	assert.Contains(t, ec.String(), "3 error(s) found (showing first 2)")
	assert.Equal(t, "name: field 'name' is required, birthday: expected date", JoinMessages(ec.ForRow(2)))
}
