package task

import (
	"bufio"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/joseph-ayodele/course-extractor/constants"
	"github.com/joseph-ayodele/course-extractor/internal/common"
)

// sniffLen is how many leading bytes are inspected to detect the content type.
const sniffLen = 3072

// FileInput is one uploaded document with its submitted metadata.
type FileInput struct {
	Filename    string    `validate:"required"`
	Content     io.Reader `validate:"-"`
	SubjectCode string    `validate:"required,alpha,min=2,max=5"`
	TermYear    string    `validate:"required,term_year"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	// YYYYMM, the month being the first month of the term.
	_ = v.RegisterValidation("term_year", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) != 6 {
			return false
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return false
		}
		month := n % 100
		return n/100 >= 1900 && month >= 1 && month <= 12
	})
	return v
}

// check validates metadata and the declared extension without reading content.
func (m *Manager) check(i int, in FileInput) error {
	if err := m.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return common.InputError("file %d (%s): %s fails %q", i+1, in.Filename, fieldName(fe.Field()), fe.Tag())
		}
		return common.InputError("file %d (%s): %v", i+1, in.Filename, err)
	}
	if in.Content == nil {
		return common.InputError("file %d (%s): content is missing", i+1, in.Filename)
	}
	if !constants.IsAllowedExt(filepath.Ext(in.Filename)) {
		return common.InputError("file %d (%s): only .pdf documents are accepted", i+1, in.Filename)
	}
	return nil
}

// sniffPDF peeks at the head of r and rejects anything that is not a PDF.
// The returned reader still yields the full content.
func sniffPDF(r io.Reader, filename string) (io.Reader, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, common.InputError("%s: read upload: %v", filename, err)
	}
	if len(head) == 0 {
		return nil, common.InputError("%s: file is empty", filename)
	}
	if mt := mimetype.Detect(head); !mt.Is(constants.PDFMimeType) {
		return nil, common.InputError("%s: expected %s, got %s", filename, constants.PDFMimeType, mt.String())
	}
	return br, nil
}

func fieldName(f string) string {
	switch f {
	case "SubjectCode":
		return "subject_code"
	case "TermYear":
		return "term_year"
	default:
		return strings.ToLower(f)
	}
}
