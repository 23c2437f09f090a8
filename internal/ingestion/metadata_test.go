package ingestion

import "testing"

func TestInferDocumentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{name: "resume file", source: "jane-doe-resume.txt", want: TypeResume},
		{name: "cv upper case", source: "/home/jane/CV_2026.md", want: TypeResume},
		{name: "accented resume", source: "Résumé Jane.txt", want: TypeResume},
		{name: "windows path", source: `C:\Users\jane\Documents\resume.txt`, want: TypeResume},
		{name: "job description phrase", source: "senior-go-job-description.txt", want: TypeJobDescription},
		{name: "jd token", source: "backend_jd.md", want: TypeJobDescription},
		{name: "job posting url", source: "https://careers.example.com/jobs/42/job-posting?ref=board", want: TypeJobDescription},
		{name: "cover letter", source: "cover letter acme.txt", want: TypeCoverLetter},
		{name: "directory name ignored", source: "/data/resumes/notes.txt", want: ""},
		{name: "no match", source: "meeting-notes.txt", want: ""},
		{name: "empty", source: "", want: ""},
		{name: "bare host url", source: "https://example.com", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := InferDocumentType(tc.source); got != tc.want {
				t.Errorf("InferDocumentType(%q) = %q, want %q", tc.source, got, tc.want)
			}
		})
	}
}
