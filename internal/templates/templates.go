// Package templates holds every text the relay posts to Discord.
// Defaults are built in; an optional YAML file overrides any subset.
package templates

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Name identifies one template.
type Name string

const (
	ThreadName       Name = "thread_name"
	RelayUser        Name = "relay_user"
	NewTicket        Name = "new_ticket"
	Acknowledgement  Name = "acknowledgement"
	ClaimRequired    Name = "claim_required"
	ClaimedByOther   Name = "claimed_by_other"
	StaffReply       Name = "staff_reply"
	UserReaction     Name = "user_reaction"
	StaffReaction    Name = "staff_reaction"
	ClosingNotice    Name = "closing_notice"
	Claimed          Name = "claimed"
	Transferred      Name = "transferred"
	Closed           Name = "closed"
	StaffOnly        Name = "staff_only"
	NotClaimed       Name = "not_claimed"
	IneligibleTarget Name = "ineligible_target"
)

// Set is the raw template text, one field per Name.
type Set struct {
	ThreadName       string `yaml:"thread_name"`
	RelayUser        string `yaml:"relay_user"`
	NewTicket        string `yaml:"new_ticket"`
	Acknowledgement  string `yaml:"acknowledgement"`
	ClaimRequired    string `yaml:"claim_required"`
	ClaimedByOther   string `yaml:"claimed_by_other"`
	StaffReply       string `yaml:"staff_reply"`
	UserReaction     string `yaml:"user_reaction"`
	StaffReaction    string `yaml:"staff_reaction"`
	ClosingNotice    string `yaml:"closing_notice"`
	Claimed          string `yaml:"claimed"`
	Transferred      string `yaml:"transferred"`
	Closed           string `yaml:"closed"`
	StaffOnly        string `yaml:"staff_only"`
	NotClaimed       string `yaml:"not_claimed"`
	IneligibleTarget string `yaml:"ineligible_target"`
}

// Data carries the values a template may reference.
type Data struct {
	Username    string // end user's account name
	UserID      string
	Content     string // message text being relayed or quoted
	Mention     string // mention of the message author
	RoleMention string // mention of the support role
	StaffName   string
	RoleLabel   string
	ServerName  string
	Emoji       string
}

// Defaults returns the built-in texts.
func Defaults() Set {
	return Set{
		ThreadName: "ticket-{{.Username}}",
		RelayUser:  "👤 **{{.Username}}:**\n{{.Content}}",
		NewTicket: "{{.RoleMention}}\n" +
			"✈️ **NEW SUPPORT TICKET**\n" +
			"**User:** {{.Username}} (`{{.UserID}}`)\n\n" +
			"**Message:**\n{{.Content}}",
		Acknowledgement: "**Thank you for your message!**\n" +
			"**Our moderation team will reply to you here as soon as possible.**",
		ClaimRequired:  "{{.Mention}}\n**Please claim this ticket before replying.**",
		ClaimedByOther: "{{.Mention}}\n**This ticket is currently handled by another staff member.**",
		StaffReply: "**{{.RoleLabel}} {{.StaffName}}**\n\n" +
			"**Dear Member,**\n\n" +
			"{{.Content}}\n\n" +
			"**Regards,**\n" +
			"**{{.RoleLabel}}**\n" +
			"**{{.ServerName}}**",
		UserReaction:  "👤 **USER {{.Username}} reacted {{.Emoji}} to:**\n> {{.Content}}",
		StaffReaction: "🧑‍✈️ **STAFF {{.StaffName}} reacted {{.Emoji}} to:**\n> {{.Content}}",
		ClosingNotice: "**{{.RoleLabel}} {{.StaffName}}**\n\n" +
			"**Dear Member,**\n\n" +
			"**This ticket will be closed now. Should you have any further inquiries, " +
			"feel free to open a new ticket by sending a message to this bot.**\n\n" +
			"**Kindly do not reply to this message.**\n\n" +
			"**Kind Regards,**\n" +
			"**Support Team**\n" +
			"**{{.ServerName}}**",
		Claimed:          "✅ **Ticket claimed.**",
		Transferred:      "✅ **Ticket transferred to {{.StaffName}}.**",
		Closed:           "🛑 **Ticket closed.**",
		StaffOnly:        "❌ Staff only.",
		NotClaimed:       "❌ Ticket not claimed.",
		IneligibleTarget: "**You can only transfer tickets to {{.RoleLabel}} or Administrators.**",
	}
}

// Load returns the defaults overlaid with the YAML file at path.
// An empty path returns the defaults.
func Load(path string) (Set, error) {
	set := Defaults()
	if path == "" {
		return set, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("reading templates file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return Set{}, fmt.Errorf("parsing templates file %s: %w", path, err)
	}
	return set, nil
}

// Renderer executes a compiled Set.
type Renderer struct {
	tmpls map[Name]*template.Template
}

// Compile parses every template in the set. Empty templates are an error.
func (s Set) Compile() (*Renderer, error) {
	r := &Renderer{tmpls: make(map[Name]*template.Template)}
	v := reflect.ValueOf(s)
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		name := Name(typ.Field(i).Tag.Get("yaml"))
		text := v.Field(i).String()
		if text == "" {
			return nil, fmt.Errorf("template %s is empty", name)
		}
		t, err := template.New(string(name)).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		r.tmpls[name] = t
	}
	return r, nil
}

// MustCompile is Compile for the built-in defaults and tests.
func MustCompile(s Set) *Renderer {
	r, err := s.Compile()
	if err != nil {
		panic(err)
	}
	return r
}

// Render executes one template.
func (r *Renderer) Render(name Name, data Data) (string, error) {
	t, ok := r.tmpls[name]
	if !ok {
		return "", fmt.Errorf("unknown template %s", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}
