package pdfops

// Dict is a PDF dictionary. Setting a key twice keeps the last value.
type Dict map[Name]Value

func (d Dict) Linearized() bool {
	return d.Has("Linearized")
}

func (d Dict) Type() string {
	t := d.GetName("Type")
	if t == "" && d.Linearized() {
		t = "Linearized"
	}
	return t
}

func (d Dict) Subtype() string {
	return d.GetName("Subtype")
}

func (d Dict) IsEmpty() bool {
	return len(d) == 0
}

// Filters returns the names of the filters applied to a stream, first to
// apply first.
func (d Dict) Filters() []string {
	switch v := d.Get("Filter").(type) {
	case Name:
		return []string{string(v)}
	case Array:
		var list []string
		for i := range v {
			if n, ok := v[i].(Name); ok {
				list = append(list, string(n))
			}
		}
		return list
	default:
		return nil
	}
}

// DecodeParms returns the parameters of the filter at position i.
func (d Dict) DecodeParms(i int) Dict {
	switch v := d.Get("DecodeParms").(type) {
	case Dict:
		if i == 0 {
			return v
		}
	case Array:
		if i < len(v) {
			if p, ok := v[i].(Dict); ok {
				return p
			}
		}
	}
	return nil
}

func (d Dict) Length() int64 {
	if d.Linearized() {
		return d.GetInt("L")
	}
	return d.GetInt("Length")
}

func (d Dict) Has(key string) bool {
	_, ok := d[Name(key)]
	return ok
}

func (d Dict) Get(key string) Value {
	return d[Name(key)]
}

func (d Dict) GetDict(key string) Dict {
	k, ok := d.Get(key).(Dict)
	if !ok {
		return make(Dict)
	}
	return k
}

func (d Dict) GetBool(key string) bool {
	b, _ := d.Get(key).(Bool)
	return bool(b)
}

func (d Dict) GetName(key string) string {
	n, _ := d.Get(key).(Name)
	return string(n)
}

// GetString returns the text of a string or the value of a name.
func (d Dict) GetString(key string) string {
	switch v := d.Get(key).(type) {
	case String:
		return v.Text()
	case Name:
		return string(v)
	default:
		return ""
	}
}

func (d Dict) GetBytes(key string) []byte {
	s, _ := d.Get(key).(String)
	return s.Bytes
}

func (d Dict) GetInt(key string) int64 {
	n, ok := d.Get(key).(*Number)
	if !ok {
		return 0
	}
	i, _ := n.Int()
	return i
}

func (d Dict) GetFloat(key string) float64 {
	n, ok := d.Get(key).(*Number)
	if !ok {
		return 0
	}
	f, _ := n.Float()
	return f
}

func (d Dict) GetReference(key string) (Reference, bool) {
	r, ok := d.Get(key).(Reference)
	return r, ok
}

func (d Dict) GetArray(key string) Array {
	v, _ := d.Get(key).(Array)
	return v
}

func (d Dict) GetIntArray(key string) []int64 {
	var (
		arr = d.GetArray(key)
		val []int64
	)
	for i := range arr {
		n, ok := arr[i].(*Number)
		if !ok {
			continue
		}
		if i, err := n.Int(); err == nil {
			val = append(val, i)
		}
	}
	return val
}

func (d Dict) GetStringArray(key string) []string {
	var (
		arr = d.GetArray(key)
		str []string
	)
	for _, v := range arr {
		switch v := v.(type) {
		case String:
			str = append(str, v.Text())
		case Name:
			str = append(str, string(v))
		}
	}
	return str
}
