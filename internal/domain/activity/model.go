package activity

import "time"

// Metadata es opaco para el ledger; solo lo interpreta el proyector de notificaciones.
type Metadata map[string]any

// Clone copia en profundidad mapas y slices anidados para que nadie
// pueda mutar una fila ya escrita.
func (m Metadata) Clone() Metadata {
	if len(m) == 0 {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case Metadata:
		return x.Clone()
	case map[string]any:
		return map[string]any(Metadata(x).Clone())
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	case []int:
		return append([]int(nil), x...)
	case []float64:
		return append([]float64(nil), x...)
	case []map[string]any:
		out := make([]map[string]any, len(x))
		for i, e := range x {
			out[i] = map[string]any(Metadata(e).Clone())
		}
		return out
	default:
		return v
	}
}

// Record es una fila inmutable del ledger. No tiene UpdatedAt.
type Record struct {
	ID   string
	Type Type

	ActorID      string
	TargetUserID *string
	TaskID       *string
	NoteID       *string

	Description string
	Metadata    Metadata

	CreatedAt time.Time
}

// Event reconstruye la variante a partir de la fila. Tipos fuera de la
// enumeración (filas viejas) se devuelven como AccountEvent para no fallar en lectura.
func (r Record) Event() Event {
	cat, _ := r.Type.Category()
	switch {
	case cat == CategoryTask && r.TaskID != nil:
		return TaskEvent{TaskID: *r.TaskID, Kind: r.Type}
	case cat == CategoryNote && r.NoteID != nil:
		return NoteEvent{NoteID: *r.NoteID, Kind: r.Type}
	default:
		return AccountEvent{Kind: r.Type}
	}
}

// InvolvesUser indica si el usuario es actor o target de la fila.
func (r Record) InvolvesUser(userID string) bool {
	if r.ActorID == userID {
		return true
	}
	return r.TargetUserID != nil && *r.TargetUserID == userID
}

type Input struct {
	Event        Event
	ActorID      string
	TargetUserID string // vacío = sin target
	Description  string
	Metadata     Metadata
}

type UserSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar,omitempty"`
}

type TaskSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type NoteSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// View es un Record con los datos de las entidades referenciadas.
// Cualquiera de los punteros queda en nil si la referencia quedó colgando.
type View struct {
	Record

	Actor      *UserSummary
	TargetUser *UserSummary
	Task       *TaskSummary
	Note       *NoteSummary
}

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}
