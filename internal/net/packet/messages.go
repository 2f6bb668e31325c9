package packet

// Typed payload structs, one per opcode. Decode returns an error when the
// body does not match the schema; such frames never reach handler logic.

// --- Ping / Pong ---

type Ping struct {
	ClientTimestamp int64
}

func (m *Ping) Encode(w *Writer) { w.WriteI64(m.ClientTimestamp) }
func (m *Ping) Decode(r *Reader) error {
	m.ClientTimestamp = r.ReadI64()
	return r.Err()
}

type Pong struct {
	ClientTimestamp int64
	ServerTimestamp int64
}

func (m *Pong) Encode(w *Writer) {
	w.WriteI64(m.ClientTimestamp)
	w.WriteI64(m.ServerTimestamp)
}
func (m *Pong) Decode(r *Reader) error {
	m.ClientTimestamp = r.ReadI64()
	m.ServerTimestamp = r.ReadI64()
	return r.Err()
}

// --- Authentication ---

type Login struct {
	Username string
	Password string
}

func (m *Login) Encode(w *Writer) {
	w.WriteString(m.Username)
	w.WriteString(m.Password)
}
func (m *Login) Decode(r *Reader) error {
	m.Username = r.ReadString()
	m.Password = r.ReadString()
	return r.Err()
}

type LoginResult struct {
	Success      bool
	AccountID    int64
	Message      string
	SessionToken string
}

func (m *LoginResult) Encode(w *Writer) {
	w.WriteU8(boolByte(m.Success))
	w.WriteI64(m.AccountID)
	w.WriteString(m.Message)
	w.WriteString(m.SessionToken)
}
func (m *LoginResult) Decode(r *Reader) error {
	m.Success = r.ReadU8() != 0
	m.AccountID = r.ReadI64()
	m.Message = r.ReadString()
	m.SessionToken = r.ReadString()
	return r.Err()
}

type GuestLogin struct {
	DeviceID string
}

func (m *GuestLogin) Encode(w *Writer) { w.WriteString(m.DeviceID) }
func (m *GuestLogin) Decode(r *Reader) error {
	m.DeviceID = r.ReadString()
	return r.Err()
}

type Reconnect struct {
	AccountID    int64
	SessionToken string
}

func (m *Reconnect) Encode(w *Writer) {
	w.WriteI64(m.AccountID)
	w.WriteString(m.SessionToken)
}
func (m *Reconnect) Decode(r *Reader) error {
	m.AccountID = r.ReadI64()
	m.SessionToken = r.ReadString()
	return r.Err()
}

type BindAccount struct {
	Username string
	Password string
}

func (m *BindAccount) Encode(w *Writer) {
	w.WriteString(m.Username)
	w.WriteString(m.Password)
}
func (m *BindAccount) Decode(r *Reader) error {
	m.Username = r.ReadString()
	m.Password = r.ReadString()
	return r.Err()
}

type BindAccountResult struct {
	Success bool
	Message string
}

func (m *BindAccountResult) Encode(w *Writer) {
	w.WriteU8(boolByte(m.Success))
	w.WriteString(m.Message)
}
func (m *BindAccountResult) Decode(r *Reader) error {
	m.Success = r.ReadU8() != 0
	m.Message = r.ReadString()
	return r.Err()
}

type BindSocialAccount struct {
	AuthProvider string
	ProviderID   string
}

func (m *BindSocialAccount) Encode(w *Writer) {
	w.WriteString(m.AuthProvider)
	w.WriteString(m.ProviderID)
}
func (m *BindSocialAccount) Decode(r *Reader) error {
	m.AuthProvider = r.ReadString()
	m.ProviderID = r.ReadString()
	return r.Err()
}

type BindSocialAccountResult struct {
	Success bool
	Message string
}

func (m *BindSocialAccountResult) Encode(w *Writer) {
	w.WriteU8(boolByte(m.Success))
	w.WriteString(m.Message)
}
func (m *BindSocialAccountResult) Decode(r *Reader) error {
	m.Success = r.ReadU8() != 0
	m.Message = r.ReadString()
	return r.Err()
}

type SocialLogin struct {
	AuthProvider string
	ProviderID   string
}

func (m *SocialLogin) Encode(w *Writer) {
	w.WriteString(m.AuthProvider)
	w.WriteString(m.ProviderID)
}
func (m *SocialLogin) Decode(r *Reader) error {
	m.AuthProvider = r.ReadString()
	m.ProviderID = r.ReadString()
	return r.Err()
}

// --- Kingdoms ---

type RequestKingdoms struct{}

func (m *RequestKingdoms) Encode(*Writer)       {}
func (m *RequestKingdoms) Decode(*Reader) error { return nil }

type KingdomEntry struct {
	ID          int32
	Name        string
	PlayerCount int32
	MaxPlayers  int32
	Status      uint8
}

type KingdomList struct {
	Kingdoms []KingdomEntry
}

func (m *KingdomList) Encode(w *Writer) {
	w.WriteU16(uint16(len(m.Kingdoms)))
	for _, k := range m.Kingdoms {
		w.WriteI32(k.ID)
		w.WriteString(k.Name)
		w.WriteI32(k.PlayerCount)
		w.WriteI32(k.MaxPlayers)
		w.WriteU8(k.Status)
	}
}
func (m *KingdomList) Decode(r *Reader) error {
	n := int(r.ReadU16())
	for i := 0; i < n; i++ {
		var k KingdomEntry
		k.ID = r.ReadI32()
		k.Name = r.ReadString()
		k.PlayerCount = r.ReadI32()
		k.MaxPlayers = r.ReadI32()
		k.Status = r.ReadU8()
		if r.Err() != nil {
			return r.Err()
		}
		m.Kingdoms = append(m.Kingdoms, k)
	}
	return r.Err()
}

type SelectKingdom struct {
	KingdomID int32
}

func (m *SelectKingdom) Encode(w *Writer) { w.WriteI32(m.KingdomID) }
func (m *SelectKingdom) Decode(r *Reader) error {
	m.KingdomID = r.ReadI32()
	return r.Err()
}

type PlayerData struct {
	AccountID int64
	Username  string
	PosX      float32
	PosY      float32
	Food      int32
	Wood      int32
	Stone     int32
	Gold      int32
}

func (m *PlayerData) Encode(w *Writer) {
	w.WriteI64(m.AccountID)
	w.WriteString(m.Username)
	w.WriteF32(m.PosX)
	w.WriteF32(m.PosY)
	w.WriteI32(m.Food)
	w.WriteI32(m.Wood)
	w.WriteI32(m.Stone)
	w.WriteI32(m.Gold)
}
func (m *PlayerData) Decode(r *Reader) error {
	m.AccountID = r.ReadI64()
	m.Username = r.ReadString()
	m.PosX = r.ReadF32()
	m.PosY = r.ReadF32()
	m.Food = r.ReadI32()
	m.Wood = r.ReadI32()
	m.Stone = r.ReadI32()
	m.Gold = r.ReadI32()
	return r.Err()
}

// --- Resources ---

type ModifyResources struct {
	ResourceType ResourceType
	Delta        int32
}

func (m *ModifyResources) Encode(w *Writer) {
	w.WriteU8(uint8(m.ResourceType))
	w.WriteI32(m.Delta)
}
func (m *ModifyResources) Decode(r *Reader) error {
	m.ResourceType = ResourceType(r.ReadU8())
	m.Delta = r.ReadI32()
	return r.Err()
}

type ResourceUpdate struct {
	Food  int32
	Wood  int32
	Stone int32
	Gold  int32
}

func (m *ResourceUpdate) Encode(w *Writer) {
	w.WriteI32(m.Food)
	w.WriteI32(m.Wood)
	w.WriteI32(m.Stone)
	w.WriteI32(m.Gold)
}
func (m *ResourceUpdate) Decode(r *Reader) error {
	m.Food = r.ReadI32()
	m.Wood = r.ReadI32()
	m.Stone = r.ReadI32()
	m.Gold = r.ReadI32()
	return r.Err()
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
