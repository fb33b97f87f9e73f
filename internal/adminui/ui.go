// Package adminui implements the interactive admin TUI using Bubble Tea.
package adminui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"infocomp/internal/adminapi"
)

// Client is the part of *adminapi.Client the UI drives.
type Client interface {
	Login(email, password string) (bool, error)
	Logout() error
	ListInfos() ([]adminapi.Info, error)
	CreateInfo(name, description, imagePath string) (adminapi.Info, error)
}

// state represents the current screen in the admin UI.
type state int

const (
	stateLogin state = iota
	stateInfos
	stateNewInfo
)

// Model holds all UI state for the admin TUI.
type Model struct {
	client Client
	addr   string

	st     state
	err    string
	status string

	email textinput.Model
	pass  textinput.Model

	infos   []adminapi.Info
	infoLst list.Model

	newName  textinput.Model
	newDesc  textinput.Model
	newImage textinput.Model
}

// New constructs a UI model and initializes inputs and lists.
func New(client Client, addr string) Model {
	m := Model{client: client, st: stateLogin}
	m.addr = redactAddr(addr)

	m.email = textinput.New()
	m.email.Placeholder = "admin@example.com"
	m.email.Prompt = "Email: "
	m.email.Focus()
	m.pass = textinput.New()
	m.pass.Placeholder = "password"
	m.pass.EchoMode = textinput.EchoPassword
	m.pass.Prompt = "Password: "

	m.infoLst = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.infoLst.Title = "Published"

	m.newName = textinput.New()
	m.newName.Placeholder = "INFO COMP"
	m.newName.Prompt = "Name: "
	m.newDesc = textinput.New()
	m.newDesc.Placeholder = "optional"
	m.newDesc.Prompt = "Description: "
	m.newImage = textinput.New()
	m.newImage.Placeholder = "/path/to/image.jpg (optional)"
	m.newImage.Prompt = "Image: "
	return m
}

// Init returns the initial command for the Bubble Tea runtime.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

type errMsg string
type infosMsg []adminapi.Info
type loginMsg struct{ isAdmin bool }
type createdMsg adminapi.Info
type loggedOutMsg struct{}

// Update routes messages based on UI state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.infoLst.SetSize(msg.Width-4, msg.Height-8)
		return m, nil
	case errMsg:
		m.err = string(msg)
		return m, nil
	case loginMsg:
		m.err = ""
		if !msg.isAdmin {
			m.status = "logged in without admin rights; entries can be listed but not created"
		}
		m.st = stateInfos
		return m, refreshInfosCmd(m.client)
	case infosMsg:
		m.infos = []adminapi.Info(msg)
		items := make([]list.Item, 0, len(m.infos))
		for _, in := range m.infos {
			items = append(items, infoItem{in})
		}
		m.infoLst.SetItems(items)
		m.err = ""
		return m, nil
	case createdMsg:
		m.err = ""
		m.status = fmt.Sprintf("published %q (id %d)", msg.Name, msg.ID)
		return m, refreshInfosCmd(m.client)
	case loggedOutMsg:
		m.st = stateLogin
		m.status = ""
		m.infos = nil
		m.infoLst.SetItems(nil)
		m.email.Focus()
		m.pass.Blur()
		return m, nil
	}

	switch m.st {
	case stateLogin:
		return m.updateLogin(msg)
	case stateInfos:
		var cmd tea.Cmd
		m.infoLst, cmd = m.infoLst.Update(msg)
		if k, ok := msg.(tea.KeyMsg); ok && m.infoLst.FilterState() != list.Filtering {
			switch k.String() {
			case "q", "ctrl+c":
				return m, tea.Quit
			case "r":
				return m, refreshInfosCmd(m.client)
			case "n":
				m.st = stateNewInfo
				m.err = ""
				m.status = ""
				m.newName.SetValue("")
				m.newDesc.SetValue("")
				m.newImage.SetValue("")
				m.newName.Focus()
				m.newDesc.Blur()
				m.newImage.Blur()
				return m, nil
			case "x":
				return m, logoutCmd(m.client)
			}
		}
		return m, cmd
	case stateNewInfo:
		return m.updateNewInfo(msg)
	}
	return m, nil
}

// updateLogin handles input on the login screen. Tab moves between fields.
func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "shift+tab":
			if m.email.Focused() {
				m.email.Blur()
				m.pass.Focus()
			} else {
				m.pass.Blur()
				m.email.Focus()
			}
			return m, nil
		case "enter":
			email := strings.TrimSpace(m.email.Value())
			pw := m.pass.Value()
			m.pass.SetValue("")
			if email == "" || pw == "" {
				m.err = "email and password are required"
				return m, nil
			}
			return m, loginCmd(m.client, email, pw)
		}
	}

	var cmd tea.Cmd
	if m.email.Focused() {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.pass, cmd = m.pass.Update(msg)
	}
	return m, cmd
}

// updateNewInfo handles input while composing an entry.
func (m Model) updateNewInfo(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.st = stateInfos
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			name := strings.TrimSpace(m.newName.Value())
			if name == "" {
				m.err = "name is required"
				return m, nil
			}
			desc := m.newDesc.Value()
			img := strings.TrimSpace(m.newImage.Value())
			m.st = stateInfos
			return m, createInfoCmd(m.client, name, desc, img)
		}
	}

	// Focus order: name -> description -> image
	var cmd tea.Cmd
	tab := false
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "tab" {
		tab = true
	}
	switch {
	case m.newName.Focused():
		if tab {
			m.newName.Blur()
			m.newDesc.Focus()
			return m, nil
		}
		m.newName, cmd = m.newName.Update(msg)
	case m.newDesc.Focused():
		if tab {
			m.newDesc.Blur()
			m.newImage.Focus()
			return m, nil
		}
		m.newDesc, cmd = m.newDesc.Update(msg)
	case m.newImage.Focused():
		if tab {
			m.newImage.Blur()
			m.newName.Focus()
			return m, nil
		}
		m.newImage, cmd = m.newImage.Update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString("infocomp admin")
	if m.addr != "" {
		b.WriteString(" (" + m.addr + ")")
	}
	b.WriteString("\n\n")

	switch m.st {
	case stateLogin:
		b.WriteString("Login\n")
		b.WriteString(m.email.View() + "\n")
		b.WriteString(m.pass.View() + "\n\n")
		b.WriteString("tab=next field  enter=login  esc=quit\n")
	case stateInfos:
		b.WriteString(m.infoLst.View())
		b.WriteString("\n")
		b.WriteString("Keys: n=new r=refresh x=logout q=quit\n")
	case stateNewInfo:
		b.WriteString("New entry\n\n")
		b.WriteString(m.newName.View() + "\n")
		b.WriteString(m.newDesc.View() + "\n")
		b.WriteString(m.newImage.View() + "\n\n")
		b.WriteString("tab=next field  enter=publish  esc=back\n")
	}

	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}
	if m.err != "" {
		b.WriteString("\nError: " + m.err + "\n")
	}
	return b.String()
}

type infoItem struct{ adminapi.Info }

func (i infoItem) Title() string { return i.Name }
func (i infoItem) Description() string {
	img := "no image"
	if i.ImageURL != nil {
		img = *i.ImageURL
	}
	when := i.CreatedAt
	if t, err := time.Parse(time.RFC3339, i.CreatedAt); err == nil {
		when = humanize.Time(t)
	}
	return fmt.Sprintf("#%d  %s  %s", i.ID, when, img)
}
func (i infoItem) FilterValue() string { return i.Name }

func loginCmd(c Client, email, password string) tea.Cmd {
	return func() tea.Msg {
		isAdmin, err := c.Login(email, password)
		if err != nil {
			return errMsg(err.Error())
		}
		return loginMsg{isAdmin: isAdmin}
	}
}

func logoutCmd(c Client) tea.Cmd {
	return func() tea.Msg {
		if err := c.Logout(); err != nil {
			return errMsg(err.Error())
		}
		return loggedOutMsg{}
	}
}

func refreshInfosCmd(c Client) tea.Cmd {
	return func() tea.Msg {
		infos, err := c.ListInfos()
		if err != nil {
			return errMsg(err.Error())
		}
		return infosMsg(infos)
	}
}

func createInfoCmd(c Client, name, desc, imagePath string) tea.Cmd {
	return func() tea.Msg {
		in, err := c.CreateInfo(name, desc, imagePath)
		if err != nil {
			return errMsg(err.Error())
		}
		return createdMsg(in)
	}
}

func redactAddr(addr string) string {
	u, err := url.Parse(addr)
	if err != nil {
		return ""
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	return u.Scheme + "://" + u.Host
}

// RequireInsecureByDefault reports whether addr is a loopback host, where a
// self-signed certificate is expected.
func RequireInsecureByDefault(addr string) bool {
	u, err := url.Parse(addr)
	if err != nil {
		return true
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
