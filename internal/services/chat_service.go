package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chainchat/syncd/internal/config"
	"github.com/chainchat/syncd/internal/content"
	"github.com/chainchat/syncd/internal/events"
	"github.com/chainchat/syncd/internal/ledger"
	"github.com/chainchat/syncd/internal/models"
	"github.com/chainchat/syncd/internal/preview"
	"github.com/chainchat/syncd/internal/push"
)

// groupFetchConcurrency bounds the group fan-out during LoadConversations.
const groupFetchConcurrency = 4

// HistoryProvider optionally backfills past messages for a conversation.
// The relay itself keeps no history; a provider may be wired when one exists.
type HistoryProvider interface {
	History(ctx context.Context, conversationID string, limit int) ([]*models.ChatMessage, error)
}

// ChatService is the conversation cache: the list of private and group
// conversations, the timeline of the single active conversation, and typing
// indicators. Group mutations follow the same optimistic pattern as the
// friend graph; message delivery goes through the push channel and never
// touches the ledger.
type ChatService struct {
	groupLedger ledger.GroupLedger
	identity    *IdentityService
	social      *SocialService
	channel     push.Channel
	store       content.Store
	previews    *preview.Fetcher
	history     HistoryProvider
	cfg         *config.Config
	log         *zap.Logger
	self        string

	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	activeID      string
	generation    uint64
	timeline      []*models.ChatMessage
	typing        map[string]time.Time // username -> indicator expiry
	lastErr       error

	mutations *mutationLog
}

func NewChatService(
	groupLedger ledger.GroupLedger,
	identity *IdentityService,
	social *SocialService,
	channel push.Channel,
	store content.Store,
	previews *preview.Fetcher,
	bridge *events.Bridge,
	cfg *config.Config,
	log *zap.Logger,
	self string,
) *ChatService {
	s := &ChatService{
		groupLedger:   groupLedger,
		identity:      identity,
		social:        social,
		channel:       channel,
		store:         store,
		previews:      previews,
		cfg:           cfg,
		log:           log,
		self:          strings.ToLower(self),
		conversations: make(map[string]*models.Conversation),
		typing:        make(map[string]time.Time),
		mutations:     newMutationLog(log),
	}

	if channel != nil {
		channel.OnMessage(s.handleIncoming)
		channel.OnTyping(s.handleTyping)
	}

	if bridge != nil {
		// Membership can change without a local write: an admin adds this
		// account, or a created group finalizes on chain. Refresh after the
		// settle delay, same as the friend graph.
		delayed := func(events.Event) { s.scheduleRefresh() }
		bridge.Subscribe(events.EventGroupCreated, self, delayed)
		bridge.Subscribe(events.EventGroupMemberAdded, self, delayed)
	}

	return s
}

// SetHistoryProvider wires an optional message-history backfill source.
func (s *ChatService) SetHistoryProvider(h HistoryProvider) {
	s.mu.Lock()
	s.history = h
	s.mu.Unlock()
}

// LoadConversations rebuilds the conversation list from the friend graph and
// ledger group memberships. A group that fails to load is skipped and logged;
// the rest of the list still applies. The result is discarded if the active
// conversation changed while the load was in flight.
func (s *ChatService) LoadConversations(ctx context.Context) error {
	s.mu.RLock()
	gen := s.generation
	s.mu.RUnlock()

	next := make(map[string]*models.Conversation)

	for _, friend := range s.social.ListFriends() {
		id := models.PrivateConversationID(s.self, friend.Address)
		next[id] = &models.Conversation{
			ID:           id,
			Kind:         models.ConversationPrivate,
			Participants: []*models.Profile{friend},
		}
	}

	ids, err := s.groupLedger.ListMemberships(ctx, s.self)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("list group memberships: %w", err)
	}

	var nextMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(groupFetchConcurrency)
	for _, groupID := range ids {
		groupID := groupID
		g.Go(func() error {
			info, err := s.groupLedger.GetGroup(gctx, groupID)
			if err != nil {
				// One bad group must not take down the whole refresh.
				s.log.Warn("group load failed",
					zap.Uint64("group_id", groupID), zap.Error(err))
				return nil
			}
			conv := s.groupConversation(gctx, info)
			nextMu.Lock()
			next[conv.ID] = conv
			nextMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		// The active conversation changed underneath the load.
		return nil
	}
	// Carry over local-only counters and last messages.
	for id, conv := range next {
		if prev, ok := s.conversations[id]; ok {
			conv.UnreadCount = prev.UnreadCount
			conv.LastMessage = prev.LastMessage
		}
	}
	s.conversations = next
	s.lastErr = nil
	return nil
}

func (s *ChatService) groupConversation(ctx context.Context, info *ledger.GroupInfo) *models.Conversation {
	participants := make([]*models.Profile, 0, len(info.Members))
	for _, addr := range info.Members {
		participants = append(participants, s.identity.Resolve(ctx, addr))
	}
	admins := make(map[string]bool, len(info.Admins))
	for _, addr := range info.Admins {
		admins[strings.ToLower(addr)] = true
	}
	settings := info.Settings
	conv := &models.Conversation{
		ID:           models.GroupConversationID(info.ID),
		Kind:         models.ConversationGroup,
		Participants: participants,
		Name:         info.Name,
		Description:  info.Description,
		AvatarRef:    info.AvatarRef,
		Admins:       admins,
		Settings:     &settings,
	}
	if info.AvatarRef != "" && s.store != nil {
		conv.AvatarURL = s.store.ResolveURL(info.AvatarRef)
	}
	return conv
}

// Conversations returns the cached conversation list, most recently active
// first.
func (s *ChatService) Conversations() []*models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := time.Time{}, time.Time{}
		if out[i].LastMessage != nil {
			ti = out[i].LastMessage.SentAt
		}
		if out[j].LastMessage != nil {
			tj = out[j].LastMessage.SentAt
		}
		if ti.Equal(tj) {
			return out[i].ID < out[j].ID
		}
		return ti.After(tj)
	})
	return out
}

// SetActive switches the active conversation: leaves the previous relay room,
// joins the new one, clears the timeline and typing state, and invalidates any
// in-flight loads for the previous conversation. An empty id deactivates
// without joining anything.
func (s *ChatService) SetActive(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	var conv *models.Conversation
	if conversationID != "" {
		var ok bool
		conv, ok = s.conversations[conversationID]
		if !ok {
			s.mu.Unlock()
			return models.ErrNotFound
		}
	}
	previous := s.activeID
	s.activeID = conversationID
	s.generation++
	gen := s.generation
	s.timeline = nil
	s.typing = make(map[string]time.Time)
	if conv != nil {
		conv.UnreadCount = 0
	}
	history := s.history
	s.mu.Unlock()

	if s.channel != nil {
		if previous != "" {
			if err := s.channel.Leave(ctx, previous); err != nil {
				s.log.Warn("leave room failed", zap.String("room", previous), zap.Error(err))
			}
		}
		if conversationID != "" {
			if err := s.channel.Join(ctx, conversationID); err != nil {
				return fmt.Errorf("join room: %w", err)
			}
		}
	}

	if conversationID != "" && history != nil {
		go s.loadHistory(ctx, conversationID, gen, history)
	}
	return nil
}

func (s *ChatService) loadHistory(ctx context.Context, conversationID string, gen uint64, history HistoryProvider) {
	msgs, err := history.History(ctx, conversationID, 50)
	if err != nil {
		s.log.Warn("history load failed", zap.String("conversation", conversationID), zap.Error(err))
		return
	}
	s.applyHistory(conversationID, gen, msgs)
}

func (s *ChatService) applyHistory(conversationID string, gen uint64, msgs []*models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.activeID != conversationID {
		// The user moved on; this history belongs to a stale conversation.
		return
	}
	s.timeline = append(msgs, s.timeline...)
}

// ActiveConversation returns the active conversation, or nil.
func (s *ChatService) ActiveConversation() *models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversations[s.activeID]
}

// Timeline returns a snapshot of the active conversation's message timeline.
func (s *ChatService) Timeline() []*models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.ChatMessage(nil), s.timeline...)
}

// SendText sends a text message to the active conversation. The message is
// appended locally as "sending" before relay dispatch; link previews are
// resolved asynchronously and attached only if the conversation is still
// active when the preview arrives.
func (s *ChatService) SendText(ctx context.Context, text string) (*models.ChatMessage, error) {
	self := s.identity.Self()
	profile := s.identity.Resolve(ctx, self)
	if !profile.IsRegistered {
		return nil, models.ErrProfileNotLoaded
	}

	s.mu.Lock()
	convID := s.activeID
	gen := s.generation
	s.mu.Unlock()
	if convID == "" {
		return nil, models.ErrNoActiveConversation
	}

	msg := &models.ChatMessage{
		ID:             models.NewMessageID(),
		ConversationID: convID,
		SenderAddress:  self,
		SenderUsername: profile.Username,
		Content:        text,
		Kind:           models.MessageKindText,
		DeliveryStatus: models.DeliverySending,
		SentAt:         time.Now(),
	}
	s.appendLocal(msg)

	err := s.channel.Send(ctx, convID, push.Message{
		Room:           convID,
		MessageID:      msg.ID,
		SenderAddress:  self,
		SenderUsername: profile.Username,
		Kind:           msg.Kind,
		Content:        text,
		SentAt:         msg.SentAt.Unix(),
	})
	if err != nil {
		s.markDelivery(msg.ID, models.DeliveryFailed)
		return msg, fmt.Errorf("send message: %w", err)
	}
	s.markDelivery(msg.ID, models.DeliverySent)

	if s.previews != nil {
		if link := preview.FirstURL(text); link != "" {
			go s.attachPreview(ctx, msg.ID, gen, link)
		}
	}
	return msg, nil
}

func (s *ChatService) attachPreview(ctx context.Context, messageID string, gen uint64, link string) {
	p, err := s.previews.Fetch(ctx, link)
	if err != nil || p == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	for _, m := range s.timeline {
		if m.ID == messageID {
			m.Preview = p
			return
		}
	}
}

// SendFile uploads a file to the content store and, only after the upload
// succeeds, sends and appends a file message. A failed upload produces no
// local message at all.
func (s *ChatService) SendFile(ctx context.Context, name string, data []byte) (*models.ChatMessage, error) {
	self := s.identity.Self()
	profile := s.identity.Resolve(ctx, self)
	if !profile.IsRegistered {
		return nil, models.ErrProfileNotLoaded
	}

	s.mu.RLock()
	convID := s.activeID
	s.mu.RUnlock()
	if convID == "" {
		return nil, models.ErrNoActiveConversation
	}

	kind, err := content.Validate(name, int64(len(data)), s.cfg.MaxUploadSizeMB)
	if err != nil {
		return nil, err
	}
	ref, err := s.store.Upload(ctx, data, content.Meta{Name: name})
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}

	msg := &models.ChatMessage{
		ID:             models.NewMessageID(),
		ConversationID: convID,
		SenderAddress:  self,
		SenderUsername: profile.Username,
		Kind:           kind,
		DeliveryStatus: models.DeliverySending,
		FileRef:        ref,
		FileURL:        s.store.ResolveURL(ref),
		FileName:       name,
		FileSize:       int64(len(data)),
		SentAt:         time.Now(),
	}
	s.appendLocal(msg)

	err = s.channel.Send(ctx, convID, push.Message{
		Room:           convID,
		MessageID:      msg.ID,
		SenderAddress:  self,
		SenderUsername: profile.Username,
		Kind:           kind,
		FileRef:        ref,
		FileName:       name,
		FileSize:       msg.FileSize,
		SentAt:         msg.SentAt.Unix(),
	})
	if err != nil {
		s.markDelivery(msg.ID, models.DeliveryFailed)
		return msg, fmt.Errorf("send file message: %w", err)
	}
	s.markDelivery(msg.ID, models.DeliverySent)
	return msg, nil
}

// SendTyping broadcasts a typing indicator for the active conversation.
func (s *ChatService) SendTyping(ctx context.Context, active bool) error {
	s.mu.RLock()
	convID := s.activeID
	s.mu.RUnlock()
	if convID == "" {
		return models.ErrNoActiveConversation
	}
	profile := s.identity.Resolve(ctx, s.identity.Self())
	return s.channel.SendTyping(ctx, convID, push.Typing{
		Room:     convID,
		Username: profile.Username,
		Active:   active,
	})
}

// ActiveTypers returns usernames with a live typing indicator in the active
// conversation. Indicators expire on read.
func (s *ChatService) ActiveTypers() []string {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for username, expiry := range s.typing {
		if now.After(expiry) {
			delete(s.typing, username)
			continue
		}
		out = append(out, username)
	}
	sort.Strings(out)
	return out
}

func (s *ChatService) appendLocal(msg *models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeline = append(s.timeline, msg)
	if conv, ok := s.conversations[msg.ConversationID]; ok {
		conv.LastMessage = msg
	}
}

func (s *ChatService) markDelivery(messageID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.timeline {
		if m.ID != messageID {
			continue
		}
		if models.IsValidDeliveryTransition(m.DeliveryStatus, status) {
			m.DeliveryStatus = status
		}
		return
	}
}

// handleIncoming is the push-channel message callback. Messages for the
// active room land in the timeline; messages for other rooms bump unread
// counts. Our own echoes advance delivery status instead of duplicating.
func (s *ChatService) handleIncoming(pm push.Message) {
	if strings.EqualFold(pm.SenderAddress, s.self) {
		s.markDelivery(pm.MessageID, models.DeliveryDelivered)
		return
	}

	msg := &models.ChatMessage{
		ID:             pm.MessageID,
		ConversationID: pm.Room,
		SenderAddress:  strings.ToLower(pm.SenderAddress),
		SenderUsername: pm.SenderUsername,
		Content:        pm.Content,
		Kind:           pm.Kind,
		DeliveryStatus: models.DeliveryDelivered,
		FileRef:        pm.FileRef,
		FileName:       pm.FileName,
		FileSize:       pm.FileSize,
		SentAt:         time.Unix(pm.SentAt, 0),
	}
	if msg.FileRef != "" && s.store != nil {
		msg.FileURL = s.store.ResolveURL(msg.FileRef)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[pm.Room]; ok {
		conv.LastMessage = msg
		if pm.Room != s.activeID {
			conv.UnreadCount++
		}
	}
	if pm.Room == s.activeID {
		s.timeline = append(s.timeline, msg)
		delete(s.typing, pm.SenderUsername)
	}
}

func (s *ChatService) handleTyping(t push.Typing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Room != s.activeID {
		return
	}
	if !t.Active {
		delete(s.typing, t.Username)
		return
	}
	s.typing[t.Username] = time.Now().Add(s.cfg.TypingIndicatorTimeout)
}

// --- group management ---

// CreateGroup creates a group on the ledger with the configured creation fee
// and optimistically adds the conversation.
func (s *ChatService) CreateGroup(ctx context.Context, name, description, groupType string, members []string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("group name required")
	}
	isPublic := groupType == models.GroupTypePublic

	handle, err := s.groupLedger.CreateGroup(ctx, name, description, groupType, isPublic, members, s.cfg.GroupCreationFee)
	if err != nil {
		s.setError(err)
		return "", fmt.Errorf("create group: %w", err)
	}

	s.mutations.add("group_create", handle.Hash, nil)
	s.scheduleRefresh()

	s.log.Info("group created",
		zap.String("name", name),
		zap.String("type", groupType),
		zap.Int("members", len(members)))
	return handle.Hash, nil
}

// JoinGroup joins a group the user is not yet a member of.
func (s *ChatService) JoinGroup(ctx context.Context, groupID uint64) error {
	convID := models.GroupConversationID(groupID)
	s.mu.RLock()
	_, member := s.conversations[convID]
	s.mu.RUnlock()
	if member {
		return models.ErrAlreadyMember
	}

	info, err := s.groupLedger.GetGroup(ctx, groupID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return models.ErrNotFound
		}
		s.setError(err)
		return fmt.Errorf("get group: %w", err)
	}
	if info.Settings.MaxMembers > 0 && len(info.Members) >= info.Settings.MaxMembers {
		return models.ErrGroupFull
	}

	handle, err := s.groupLedger.JoinGroup(ctx, groupID)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("join group: %w", err)
	}

	conv := s.groupConversation(ctx, info)
	conv.Participants = append(conv.Participants, s.identity.Resolve(ctx, s.self))
	s.mu.Lock()
	s.conversations[convID] = conv
	s.mu.Unlock()

	s.mutations.add("group_join", handle.Hash, func() {
		s.dropConversation(convID)
	})
	s.scheduleRefresh()
	return nil
}

// LeaveGroup leaves a group. The conversation disappears immediately; if it
// was active, the active conversation clears.
func (s *ChatService) LeaveGroup(ctx context.Context, groupID uint64) error {
	convID := models.GroupConversationID(groupID)
	s.mu.Lock()
	conv, ok := s.conversations[convID]
	if !ok {
		s.mu.Unlock()
		return models.ErrNotMember
	}
	delete(s.conversations, convID)
	wasActive := s.activeID == convID
	if wasActive {
		s.activeID = ""
		s.generation++
		s.timeline = nil
		s.typing = make(map[string]time.Time)
	}
	s.mu.Unlock()

	if wasActive && s.channel != nil {
		if err := s.channel.Leave(ctx, convID); err != nil {
			s.log.Warn("leave room failed", zap.String("room", convID), zap.Error(err))
		}
	}

	handle, err := s.groupLedger.LeaveGroup(ctx, groupID)
	if err != nil {
		s.mu.Lock()
		s.conversations[convID] = conv
		s.mu.Unlock()
		s.setError(err)
		return fmt.Errorf("leave group: %w", err)
	}

	s.mutations.add("group_leave", handle.Hash, func() {
		s.mu.Lock()
		s.conversations[convID] = conv
		s.mu.Unlock()
	})
	s.scheduleRefresh()
	return nil
}

// AddMember adds a member to a group. Requires admin rights on the cached
// group and rejects duplicates and full groups before writing.
func (s *ChatService) AddMember(ctx context.Context, groupID uint64, address string) error {
	convID := models.GroupConversationID(groupID)
	s.mu.RLock()
	conv, ok := s.conversations[convID]
	var isAdmin, already bool
	var size, max int
	if ok {
		isAdmin = conv.IsAdmin(s.self)
		already = conv.HasParticipant(address)
		size = len(conv.Participants)
		if conv.Settings != nil {
			max = conv.Settings.MaxMembers
		}
	}
	s.mu.RUnlock()

	if !ok {
		return models.ErrNotFound
	}
	if !isAdmin {
		return models.ErrNotAdmin
	}
	if already {
		return models.ErrAlreadyMember
	}
	if max > 0 && size >= max {
		return models.ErrGroupFull
	}

	handle, err := s.groupLedger.AddMember(ctx, groupID, address)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("add member: %w", err)
	}

	profile := s.identity.Resolve(ctx, address)
	s.mu.Lock()
	if conv, ok := s.conversations[convID]; ok {
		conv.Participants = append(conv.Participants, profile)
	}
	s.mu.Unlock()

	s.mutations.add("group_add_member", handle.Hash, func() {
		s.dropParticipant(convID, address)
	})
	s.scheduleRefresh()
	return nil
}

// RemoveMember removes a member from a group. Admin-only.
func (s *ChatService) RemoveMember(ctx context.Context, groupID uint64, address string) error {
	convID := models.GroupConversationID(groupID)
	s.mu.RLock()
	conv, ok := s.conversations[convID]
	var isAdmin, member bool
	if ok {
		isAdmin = conv.IsAdmin(s.self)
		member = conv.HasParticipant(address)
	}
	s.mu.RUnlock()

	if !ok {
		return models.ErrNotFound
	}
	if !isAdmin {
		return models.ErrNotAdmin
	}
	if !member {
		return models.ErrNotMember
	}

	handle, err := s.groupLedger.RemoveMember(ctx, groupID, address)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("remove member: %w", err)
	}

	removed := s.dropParticipant(convID, address)
	s.mutations.add("group_remove_member", handle.Hash, func() {
		if removed != nil {
			s.mu.Lock()
			if conv, ok := s.conversations[convID]; ok {
				conv.Participants = append(conv.Participants, removed)
			}
			s.mu.Unlock()
		}
	})
	s.scheduleRefresh()
	return nil
}

// UpdateGroupInfo updates a group's name, description, and avatar. Admin-only.
func (s *ChatService) UpdateGroupInfo(ctx context.Context, groupID uint64, name, description, avatarRef string) error {
	convID := models.GroupConversationID(groupID)
	s.mu.RLock()
	conv, ok := s.conversations[convID]
	isAdmin := ok && conv.IsAdmin(s.self)
	s.mu.RUnlock()

	if !ok {
		return models.ErrNotFound
	}
	if !isAdmin {
		return models.ErrNotAdmin
	}

	handle, err := s.groupLedger.UpdateInfo(ctx, groupID, name, description, avatarRef)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("update group info: %w", err)
	}

	s.mu.Lock()
	if conv, ok := s.conversations[convID]; ok {
		prevName, prevDesc, prevRef, prevURL := conv.Name, conv.Description, conv.AvatarRef, conv.AvatarURL
		conv.Name = name
		conv.Description = description
		conv.AvatarRef = avatarRef
		if avatarRef != "" && s.store != nil {
			conv.AvatarURL = s.store.ResolveURL(avatarRef)
		} else {
			conv.AvatarURL = ""
		}
		s.mutations.add("group_update_info", handle.Hash, func() {
			s.mu.Lock()
			if conv, ok := s.conversations[convID]; ok {
				conv.Name, conv.Description, conv.AvatarRef, conv.AvatarURL = prevName, prevDesc, prevRef, prevURL
			}
			s.mu.Unlock()
		})
	}
	s.mu.Unlock()

	s.scheduleRefresh()
	return nil
}

// UpdateGroupSettings updates a group's settings. Admin-only.
func (s *ChatService) UpdateGroupSettings(ctx context.Context, groupID uint64, settings models.GroupSettings) error {
	convID := models.GroupConversationID(groupID)
	s.mu.RLock()
	conv, ok := s.conversations[convID]
	isAdmin := ok && conv.IsAdmin(s.self)
	s.mu.RUnlock()

	if !ok {
		return models.ErrNotFound
	}
	if !isAdmin {
		return models.ErrNotAdmin
	}

	handle, err := s.groupLedger.UpdateSettings(ctx, groupID, settings)
	if err != nil {
		s.setError(err)
		return fmt.Errorf("update group settings: %w", err)
	}

	s.mu.Lock()
	if conv, ok := s.conversations[convID]; ok {
		prev := conv.Settings
		conv.Settings = &settings
		s.mutations.add("group_update_settings", handle.Hash, func() {
			s.mu.Lock()
			if conv, ok := s.conversations[convID]; ok {
				conv.Settings = prev
			}
			s.mu.Unlock()
		})
	}
	s.mu.Unlock()

	s.scheduleRefresh()
	return nil
}

// ListPublicGroups pages through the public group directory.
func (s *ChatService) ListPublicGroups(ctx context.Context, offset, limit int) ([]*ledger.GroupInfo, error) {
	groups, err := s.groupLedger.ListPublic(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list public groups: %w", err)
	}
	return groups, nil
}

// SearchGroups searches the public group directory by name.
func (s *ChatService) SearchGroups(ctx context.Context, query string, limit int) ([]*ledger.GroupInfo, error) {
	groups, err := s.groupLedger.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search groups: %w", err)
	}
	return groups, nil
}

// SetTxTracker wires confirmation watching for submitted writes.
func (s *ChatService) SetTxTracker(t TxTracker) {
	s.mutations.setTracker(t)
}

// OnTxResult resolves a tracked group mutation from the confirmation watcher.
func (s *ChatService) OnTxResult(mutationID string, confirmed bool) {
	s.mutations.resolve(mutationID, confirmed)
	if confirmed {
		s.scheduleRefresh()
	}
}

// ConnectionStatus proxies the push channel state for the UI. Presence is a
// connection property, not a tracked per-user feature.
func (s *ChatService) ConnectionStatus(cb func(status string)) {
	if s.channel != nil {
		s.channel.OnStatus(cb)
	}
}

// LastError reports the most recent ledger failure, or nil.
func (s *ChatService) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *ChatService) setError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *ChatService) scheduleRefresh() {
	time.AfterFunc(s.cfg.SettleDelay, func() {
		if err := s.LoadConversations(context.Background()); err != nil {
			s.log.Warn("conversation refresh failed", zap.Error(err))
		}
	})
}

func (s *ChatService) dropConversation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	if s.activeID == id {
		s.activeID = ""
		s.generation++
		s.timeline = nil
	}
}

func (s *ChatService) dropParticipant(convID, address string) *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[convID]
	if !ok {
		return nil
	}
	for i, p := range conv.Participants {
		if strings.EqualFold(p.Address, address) {
			removed := p
			conv.Participants = append(conv.Participants[:i], conv.Participants[i+1:]...)
			return removed
		}
	}
	return nil
}
