package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kotsworld/mailsync/dto"
	"github.com/kotsworld/mailsync/interfaces"
	"github.com/kotsworld/mailsync/internal/enum"
	mailsync_errors "github.com/kotsworld/mailsync/internal/errors"
	"github.com/kotsworld/mailsync/internal/logger"
	"github.com/kotsworld/mailsync/internal/models"
	"github.com/kotsworld/mailsync/services/attachments"
	"github.com/kotsworld/mailsync/services/cursor"
	"github.com/kotsworld/mailsync/services/runlock"
)

var fixedNow = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()
	return appLogger
}

type testMail struct {
	messageID string
	subject   string
	body      string
	date      string
	pdfName   string
}

func (m testMail) raw() []byte {
	var b bytes.Buffer
	if m.messageID != "" {
		fmt.Fprintf(&b, "Message-ID: %s\r\n", m.messageID)
	}
	date := m.date
	if date == "" {
		date = "Thu, 09 Jan 2025 10:15:00 +0000"
	}
	fmt.Fprintf(&b, "Date: %s\r\n", date)
	b.WriteString("From: Kots Contracts <contracts@kots.example>\r\n")
	b.WriteString("To: Tenant <tenant@example.com>\r\n")
	fmt.Fprintf(&b, "Subject: %s\r\n", m.subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	if m.pdfName == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(m.body + "\r\n")
		return b.Bytes()
	}
	b.WriteString("Content-Type: multipart/mixed; boundary=\"B\"\r\n\r\n")
	b.WriteString("--B\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(m.body + "\r\n")
	fmt.Fprintf(&b, "--B\r\nContent-Type: application/pdf\r\nContent-Disposition: attachment; filename=\"%s\"\r\nContent-Transfer-Encoding: base64\r\n\r\nJVBERi0xLjQK\r\n--B--\r\n", m.pdfName)
	return b.Bytes()
}

// fakeMailbox serves folders of raw messages keyed by UID.
type fakeMailbox struct {
	folders map[string]map[uint32][]byte

	connectErr   error
	reconnectErr error
	searchErrs   map[string]error
	// transientFailures makes the next n fetches of a UID fail with a connection error.
	transientFailures map[uint32]int
	permanentFailures map[uint32]bool

	selected   string
	selects    []string
	reconnects int
	connected  bool
}

func newFakeMailbox(folders map[string][]testMail) *fakeMailbox {
	m := &fakeMailbox{
		folders:           make(map[string]map[uint32][]byte),
		transientFailures: make(map[uint32]int),
		permanentFailures: make(map[uint32]bool),
		searchErrs:        make(map[string]error),
	}
	for name, mails := range folders {
		m.folders[name] = make(map[uint32][]byte)
		for i, mail := range mails {
			m.folders[name][uint32(i+1)] = mail.raw()
		}
	}
	return m
}

func (m *fakeMailbox) Connect(ctx context.Context) error {
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

func (m *fakeMailbox) SelectFolder(ctx context.Context, name string) (*dto.FolderInfo, error) {
	folder, ok := m.folders[name]
	if !ok {
		return nil, mailsync_errors.ErrFolderNotFound
	}
	m.selected = name
	m.selects = append(m.selects, name)
	return &dto.FolderInfo{Name: name, Messages: uint32(len(folder))}, nil
}

func (m *fakeMailbox) Search(ctx context.Context, criteria dto.SearchCriteria) ([]uint32, error) {
	if err := m.searchErrs[m.selected]; err != nil {
		return nil, err
	}
	var uids []uint32
	for uid, raw := range m.folders[m.selected] {
		if criteria.Text != "" && !strings.Contains(string(raw), criteria.Text) {
			continue
		}
		uids = append(uids, uid)
	}
	return uids, nil
}

func (m *fakeMailbox) Fetch(ctx context.Context, uid uint32) ([]byte, error) {
	if m.transientFailures[uid] > 0 {
		m.transientFailures[uid]--
		return nil, fmt.Errorf("fetch %d: %w", uid, mailsync_errors.ErrMailboxConnection)
	}
	if m.permanentFailures[uid] {
		return nil, fmt.Errorf("fetch %d: %w", uid, mailsync_errors.ErrMessageFetch)
	}
	raw, ok := m.folders[m.selected][uid]
	if !ok {
		return nil, mailsync_errors.ErrMessageFetch
	}
	return raw, nil
}

func (m *fakeMailbox) Reconnect(ctx context.Context) error {
	m.reconnects++
	return m.reconnectErr
}

func (m *fakeMailbox) Disconnect(ctx context.Context) {
	m.connected = false
}

type fakeDocumentRepo struct {
	mu        sync.Mutex
	documents []*models.ContractDocument
	notes     []*models.Notification
	commitErr error
	commits   int
}

func (r *fakeDocumentRepo) ListDedupKeys(ctx context.Context) ([]models.DocumentDedupKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]models.DocumentDedupKey, 0, len(r.documents))
	for _, d := range r.documents {
		keys = append(keys, models.DocumentDedupKey{EmailMessageID: d.EmailMessageID, BookingID: d.BookingID, DocumentTitle: d.DocumentTitle})
	}
	return keys, nil
}

func (r *fakeDocumentRepo) CommitBatch(ctx context.Context, documents []*models.ContractDocument, notifications []*models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commits++
	if r.commitErr != nil {
		return r.commitErr
	}
	r.documents = append(r.documents, documents...)
	r.notes = append(r.notes, notifications...)
	return nil
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*models.ServiceTicket
	nextID  uint64
	notes   []*models.Notification
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*models.ServiceTicket)}
}

func (r *fakeTicketRepo) ListTicketNumbers(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var numbers []string
	for number := range r.tickets {
		numbers = append(numbers, number)
	}
	return numbers, nil
}

func (r *fakeTicketRepo) GetByTicketNumber(ctx context.Context, ticketNumber string) (*models.ServiceTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[ticketNumber]
	if !ok {
		return nil, nil
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) CommitBatch(ctx context.Context, created []*models.ServiceTicket, closures []models.TicketClosure, notifications []*models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range created {
		if _, exists := r.tickets[t.TicketNumber]; exists {
			return errors.New("duplicate ticket number")
		}
		r.nextID++
		t.ID = r.nextID
		r.tickets[t.TicketNumber] = t
	}
	for _, c := range closures {
		t := r.tickets[c.TicketNumber]
		if t == nil || t.ID != c.TicketID || t.Status != enum.TicketOpen {
			continue
		}
		message := c.ResolutionMessage
		resolvedAt := c.ResolvedAt
		t.Status = enum.TicketClosed
		t.FinalResolutionMessage = &message
		t.FinalResolutionAt = &resolvedAt
	}
	r.notes = append(r.notes, notifications...)
	return nil
}

type fakeCursorRepo struct {
	mu     sync.Mutex
	stored map[string]*models.SyncCursor
}

func (r *fakeCursorRepo) Get(ctx context.Context, pipeline string) (*models.SyncCursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stored[pipeline], nil
}

func (r *fakeCursorRepo) Save(ctx context.Context, c *models.SyncCursor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stored == nil {
		r.stored = make(map[string]*models.SyncCursor)
	}
	r.stored[c.Pipeline] = c
	return nil
}

type fakeStorage struct {
	keys []string
}

func (s *fakeStorage) Put(ctx context.Context, data []byte, key, contentType string) (string, error) {
	s.keys = append(s.keys, key)
	return "https://cdn.example/" + key, nil
}

func (s *fakeStorage) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []dto.NotificationEvent
}

func (n *fakeNotifier) Submit(ctx context.Context, event dto.NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

type harness struct {
	mailbox   *fakeMailbox
	documents *fakeDocumentRepo
	tickets   *fakeTicketRepo
	cursors   *fakeCursorRepo
	storage   *fakeStorage
	notifier  *fakeNotifier
	deps      *Dependencies
}

func newHarness(mailbox *fakeMailbox, folders ...string) *harness {
	if len(folders) == 0 {
		folders = []string{"Sent"}
	}
	h := &harness{
		mailbox:   mailbox,
		documents: &fakeDocumentRepo{},
		tickets:   newFakeTicketRepo(),
		cursors:   &fakeCursorRepo{},
		storage:   &fakeStorage{},
		notifier:  &fakeNotifier{},
	}
	log := getLogger()
	clock := func() time.Time { return fixedNow }
	h.deps = &Dependencies{
		NewMailbox: func() interfaces.MailboxClient { return h.mailbox },
		Folders:    folders,
		Documents:  h.documents,
		Tickets:    h.tickets,
		Cursor:     cursor.NewSyncCursor(h.cursors, log, time.UTC, cursor.WithClock(clock)),
		Uploader:   attachments.NewUploader(h.storage, log),
		Notifier:   h.notifier,
		Log:        log,
		Now:        clock,
	}
	return h
}

func (h *harness) service() *IngestionService {
	return NewIngestionService(h.deps, runlock.NewLocalLock())
}
