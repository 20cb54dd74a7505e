package vizclient

import "io"

// AudioFieldName is the multipart field the server requires.
const AudioFieldName = "audio"

// Field is one named form value. Hidden fields are carried but skipped by
// validation, mirroring how invisible form controls behave.
type Field struct {
	Name   string
	Value  string
	Hidden bool
}

// Attachment is a file part of the submission.
type Attachment struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Form collects a submission: an ordered set of fields plus file
// attachments. It is built fresh per submission and performs no validation;
// see Validate for that.
type Form struct {
	fields []Field
	files  []Attachment
}

func NewForm() *Form {
	return &Form{}
}

// SetField sets a named value, keeping first-set order for existing names.
func (f *Form) SetField(name, value string) {
	for i := range f.fields {
		if f.fields[i].Name == name {
			f.fields[i].Value = value
			return
		}
	}
	f.fields = append(f.fields, Field{Name: name, Value: value})
}

// SetHidden sets a value that validation will skip.
func (f *Form) SetHidden(name, value string) {
	f.SetField(name, value)
	for i := range f.fields {
		if f.fields[i].Name == name {
			f.fields[i].Hidden = true
		}
	}
}

// SetBool serializes a checkbox the way browsers do: "on" or "off".
func (f *Form) SetBool(name string, checked bool) {
	if checked {
		f.SetField(name, "on")
	} else {
		f.SetField(name, "off")
	}
}

// AttachAudio sets the required audio file part.
func (f *Form) AttachAudio(filename string, content io.Reader) {
	f.Attach(AudioFieldName, filename, content)
}

// Attach adds an arbitrary file part, replacing any previous attachment for
// the same field.
func (f *Form) Attach(field, filename string, content io.Reader) {
	for i := range f.files {
		if f.files[i].Field == field {
			f.files[i].Filename = filename
			f.files[i].Content = content
			return
		}
	}
	f.files = append(f.files, Attachment{Field: field, Filename: filename, Content: content})
}

// Fields returns the fields in submission order.
func (f *Form) Fields() []Field {
	return f.fields
}

// Value looks up a field by name.
func (f *Form) Value(name string) (string, bool) {
	for _, fld := range f.fields {
		if fld.Name == name {
			return fld.Value, true
		}
	}
	return "", false
}

// HasAudio reports whether the required audio part is attached.
func (f *Form) HasAudio() bool {
	for _, a := range f.files {
		if a.Field == AudioFieldName {
			return true
		}
	}
	return false
}

func (f *Form) attachments() []Attachment {
	return f.files
}
