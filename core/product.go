package core

// Categoria is the category a product belongs to, as returned by the
// catalog API.
type Categoria struct {
	ID     int    `json:"id"`
	Nombre string `json:"nombre"`
}

// Product is a read-only mirror of a catalog row. Field names follow the
// wire format of the /pos endpoints. Products are never mutated locally;
// a re-fetch supersedes the whole list.
type Product struct {
	ID          int        `json:"id"`
	Nombre      string     `json:"nombre"`
	Precio      float64    `json:"precio"`
	Cantidad    int        `json:"cantidad"`
	CodigoBarra string     `json:"codigo_barra,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Categoria   *Categoria `json:"categoria,omitempty"`
}

// CategoryName returns the category label used for grouping, with the
// catch-all bucket for uncategorized products.
func (p Product) CategoryName() string {
	if p.Categoria == nil || p.Categoria.Nombre == "" {
		return "Otros"
	}
	return p.Categoria.Nombre
}
