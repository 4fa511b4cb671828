package cinnamon

// Handler is the capability every registered controller must satisfy. The
// dispatcher hands it the request-scoped collaborators before the action
// runs and reads the model afterwards.
type Handler interface {
	Model() map[string]any
	SetSession(*Session)
	SetRequest(*Request)
	SetMessages(*Messages)
}

// Controller is an embeddable Handler implementation:
//
//	type Users struct {
//	    cinnamon.Controller
//	}
type Controller struct {
	model    map[string]any
	session  *Session
	request  *Request
	messages *Messages
}

// Model returns the mutable view model
func (c *Controller) Model() map[string]any {
	if c.model == nil {
		c.model = make(map[string]any)
	}
	return c.model
}

func (c *Controller) SetSession(s *Session)   { c.session = s }
func (c *Controller) SetRequest(r *Request)   { c.request = r }
func (c *Controller) SetMessages(m *Messages) { c.messages = m }
func (c *Controller) Session() *Session       { return c.session }
func (c *Controller) Request() *Request       { return c.request }
func (c *Controller) Messages() *Messages     { return c.messages }
