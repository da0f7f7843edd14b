package textqueue

import (
	"strings"
	"testing"
)

func TestParseQueueOutput(t *testing.T) {
	input := "123|job1|RUNNING\n124|job2|PENDING\n\n125| job3 | RUNNING \n"
	jobs, err := ParseQueueOutput(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	if jobs["124"].JobName != "job2" || jobs["124"].State != "PENDING" {
		t.Errorf("unexpected job 124: %+v", jobs["124"])
	}
	if jobs["125"].JobName != "job3" {
		t.Errorf("expected trimmed job name, got %q", jobs["125"].JobName)
	}
}

func TestParseQueueOutput_MalformedLine(t *testing.T) {
	_, err := ParseQueueOutput(strings.NewReader("123|job1\n"))
	if err == nil {
		t.Error("expected error for line with too few fields")
	}
}

func TestParseQueueOutput_Empty(t *testing.T) {
	jobs, err := ParseQueueOutput(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 0 {
		t.Errorf("expected no jobs, got %d", len(jobs))
	}
}
