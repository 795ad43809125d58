// Package testutil holds in-memory repositories used by unit tests.
package testutil

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sarf14/onboarding-tool-sub001/internal/storage"
	"github.com/sarf14/onboarding-tool-sub001/internal/store"
	"github.com/sarf14/onboarding-tool-sub001/types"
)

// Users is an in-memory user repository.
type Users struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]types.User

	// Err, when set, is returned by every read.
	Err error
}

func NewUsers() *Users {
	return &Users{nextID: 1, byID: make(map[int]types.User)}
}

func (u *Users) GetByID(_ context.Context, id int) (types.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return types.User{}, u.Err
	}
	user, ok := u.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (u *Users) GetByEmail(_ context.Context, email string) (types.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return types.User{}, u.Err
	}
	for _, user := range u.byID {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (u *Users) ListTrainees(_ context.Context, mentorID *int) ([]types.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return nil, u.Err
	}
	var out []types.User
	for _, user := range u.byID {
		if !user.IsTrainee() {
			continue
		}
		if mentorID != nil && (user.MentorID == nil || *user.MentorID != *mentorID) {
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (u *Users) Create(_ context.Context, user types.User) (types.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.byID {
		if strings.EqualFold(existing.Email, user.Email) {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = u.nextID
	u.nextID++
	if user.CurrentDay < 1 {
		user.CurrentDay = 1
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	u.byID[user.ID] = user
	return user, nil
}

func (u *Users) AssignMentor(_ context.Context, traineeID, mentorID int) error {
	return u.update(traineeID, func(user *types.User) {
		user.MentorID = &mentorID
	})
}

func (u *Users) UpdatePassword(_ context.Context, id int, passwordHash string) error {
	return u.update(id, func(user *types.User) {
		user.PasswordHash = passwordHash
		user.SessionVersion++
	})
}

func (u *Users) ActivateProgram(_ context.Context, id int, at time.Time) error {
	return u.update(id, func(user *types.User) {
		if user.ProgramStart == nil {
			user.ProgramStart = &at
		}
	})
}

func (u *Users) AdvanceDay(_ context.Context, id, from, maxDay int) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.byID[id]
	if !ok || user.CurrentDay != from || user.CurrentDay >= maxDay {
		return false, nil
	}
	user.CurrentDay++
	u.byID[id] = user
	return true, nil
}

// Put stores a user as-is, assigning an id when missing.
func (u *Users) Put(user types.User) types.User {
	u.mu.Lock()
	defer u.mu.Unlock()
	if user.ID == 0 {
		user.ID = u.nextID
	}
	if user.ID >= u.nextID {
		u.nextID = user.ID + 1
	}
	if user.CurrentDay < 1 {
		user.CurrentDay = 1
	}
	u.byID[user.ID] = user
	return user
}

func (u *Users) update(id int, fn func(user *types.User)) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(&user)
	user.UpdatedAt = time.Now()
	u.byID[id] = user
	return nil
}

type progressKey struct {
	trainee int
	day     int
}

// Progress is an in-memory day progress repository. Mutate holds a single
// lock for the whole read-modify-write, like the row lock in postgres.
type Progress struct {
	mu   sync.Mutex
	rows map[progressKey]types.DayProgress

	// MutateErr, when set, fails Mutate before fn runs.
	MutateErr error
}

func NewProgress() *Progress {
	return &Progress{rows: make(map[progressKey]types.DayProgress)}
}

func (p *Progress) ListByTrainee(_ context.Context, traineeID int) ([]types.DayProgress, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []types.DayProgress
	for key, row := range p.rows {
		if key.trainee == traineeID {
			out = append(out, clone(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (p *Progress) Get(_ context.Context, traineeID, day int) (types.DayProgress, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	row, ok := p.rows[progressKey{traineeID, day}]
	if !ok {
		return types.DayProgress{}, store.ErrNotFound
	}
	return clone(row), nil
}

func (p *Progress) Mutate(_ context.Context, init types.DayProgress, fn func(*types.DayProgress) error) (types.DayProgress, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.MutateErr != nil {
		return types.DayProgress{}, p.MutateErr
	}

	key := progressKey{init.TraineeID, init.Day}
	row, ok := p.rows[key]
	if !ok {
		row = clone(init)
		row.CreatedAt = time.Now()
	} else {
		row = clone(row)
	}
	if err := fn(&row); err != nil {
		return types.DayProgress{}, err
	}
	row.TasksCompleted = len(row.CompletedTasks)
	row.UpdatedAt = time.Now()
	p.rows[key] = row
	return clone(row), nil
}

func clone(p types.DayProgress) types.DayProgress {
	p.CompletedTasks = append([]string{}, p.CompletedTasks...)
	return p
}

// Denylist is an in-memory token denylist.
type Denylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewDenylist() *Denylist {
	return &Denylist{revoked: make(map[string]time.Time)}
}

func (d *Denylist) Revoke(_ context.Context, tokenID string, _ int, expiresAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[tokenID] = expiresAt
	return nil
}

func (d *Denylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.revoked[tokenID]
	return ok, nil
}

// Curriculum is a fixed curriculum: day n has tasks "d<n>-t1".."d<n>-t<k>".
type Curriculum struct {
	Tasks []int
}

func (c Curriculum) Len() int { return len(c.Tasks) }

func (c Curriculum) TasksTotal(day int) int {
	if day < 1 || day > len(c.Tasks) {
		return 0
	}
	return c.Tasks[day-1]
}

func (c Curriculum) HasTask(day int, taskID string) bool {
	for i := 1; i <= c.TasksTotal(day); i++ {
		if TaskID(day, i) == taskID {
			return true
		}
	}
	return false
}

// TaskID names the i-th task of a day in Curriculum.
func TaskID(day, i int) string {
	return "d" + strconv.Itoa(day) + "-t" + strconv.Itoa(i)
}

// Publisher records published messages.
type Publisher struct {
	mu       sync.Mutex
	Messages []PublishedMessage
}

type PublishedMessage struct {
	Channel string
	Data    []byte
	Attrs   map[string]string
}

func (p *Publisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, PublishedMessage{Channel: channel, Data: data, Attrs: attrs})
	return strconv.Itoa(len(p.Messages)), nil
}

// Types returns the "type" attribute of every published message in order.
func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		out = append(out, m.Attrs["type"])
	}
	return out
}

// Objects is an in-memory object store for day content.
type Objects struct {
	mu      sync.Mutex
	objects map[string][]byte

	// Err, when set, is returned by every call.
	Err error
}

func NewObjects() *Objects {
	return &Objects{objects: make(map[string][]byte)}
}

func (o *Objects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if o.Err != nil {
		return o.Err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = data
	return nil
}

func (o *Objects) ReadAll(_ context.Context, key string, limit int64) ([]byte, error) {
	if o.Err != nil {
		return nil, o.Err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	data, ok := o.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if int64(len(data)) > limit {
		return nil, storage.ErrTooLarge
	}
	return append([]byte(nil), data...), nil
}

func (o *Objects) Delete(_ context.Context, key string) error {
	if o.Err != nil {
		return o.Err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(o.objects, key)
	return nil
}

// Keys lists stored object keys.
func (o *Objects) Keys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	keys := make([]string, 0, len(o.objects))
	for key := range o.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
