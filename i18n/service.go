package i18n

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"

	"github.com/theoremus-urban-solutions/odata-core/odataerr"
)

type bundle struct {
	templates map[string]template
}

func (b *bundle) template(key string) (template, bool) {
	if b == nil {
		return template{}, false
	}
	t, ok := b.templates[key]
	return t, ok
}

// MessageService renders messages of one locale. It is immutable and safe for
// concurrent use.
type MessageService struct {
	locale language.Tag
	bundle *bundle
	parent *bundle
}

// Locale returns the locale the service renders in.
func (s *MessageService) Locale() language.Tag { return s.locale }

// Localize renders ref. It never fails: an unknown key or a template with more
// placeholders than arguments yields a diagnostic text instead.
//
// When ref carries no arguments and cause is not nil, two arguments are
// synthesized from cause: the function of its second stack frame and its
// message. This is a degraded mode for callers that did not supply
// arguments.
func (s *MessageService) Localize(ref odataerr.MessageReference, cause error) string {
	args := ref.Content
	if len(args) == 0 && cause != nil {
		args = causeArguments(cause)
	}

	tmpl, ok := s.bundle.template(ref.Key)
	if !ok {
		if tmpl, ok = s.parent.template(ref.Key); !ok {
			return fmt.Sprintf("Missing message for key '%s'!", ref.Key)
		}
	}

	if tmpl.highest >= len(args) {
		return fmt.Sprintf("Missing replacement for place holder in value '%s' for following arguments '%v'!", tmpl.text, args)
	}
	return tmpl.render(args)
}

// LocalizeError renders err. Errors carrying a message reference use it,
// with the error itself as the cause; anything else is rendered through the
// internal error message.
func (s *MessageService) LocalizeError(err error) string {
	var oerr *odataerr.Error
	if errors.As(err, &oerr) {
		return s.Localize(oerr.Ref, oerr)
	}
	return s.Localize(odataerr.NewMessageReference(odataerr.KeyInternal), err)
}

type stackFramer interface {
	StackFrames() []string
}

func causeArguments(cause error) []string {
	var sf stackFramer
	if errors.As(cause, &sf) {
		if frames := sf.StackFrames(); len(frames) >= 2 {
			return []string{frames[1], cause.Error()}
		}
	}
	// no usable stack: fall back to the error's type
	return []string{fmt.Sprintf("%T", cause), cause.Error()}
}
