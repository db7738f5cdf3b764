// internal/storefront/shell/shell.go
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/pkg/money"
	"github.com/your-org/storefront/internal/storefront/admin"
	"github.com/your-org/storefront/internal/storefront/api"
	"github.com/your-org/storefront/internal/storefront/cart"
	"github.com/your-org/storefront/internal/storefront/notice"
	"github.com/your-org/storefront/internal/storefront/payment"
	"github.com/your-org/storefront/internal/storefront/session"
)

// Catalog is the read side of the shop
type Catalog interface {
	Products(ctx context.Context, f api.ProductFilter) ([]api.Product, error)
	Orders(ctx context.Context) ([]api.Order, error)
}

// Deps are the components the shell drives
type Deps struct {
	Session *session.Context
	Cart    *cart.Manager
	Admin   *admin.Console
	Catalog Catalog
	Cards   *payment.TokenSource
	Notices *notice.Board
	Nav     *NavBar
	Router  *Router
	Log     *logrus.Logger
}

type usageError string

func (e usageError) Error() string { return "usage: " + string(e) }

var errQuit = errors.New("quit")

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

// Shell is a line-oriented shop front end
type Shell struct {
	Deps
	in       io.Reader
	out      io.Writer
	commands map[string]command
}

// New creates a shell reading commands from in and writing to out
func New(d Deps, in io.Reader, out io.Writer) *Shell {
	s := &Shell{Deps: d, in: in, out: out}
	s.commands = map[string]command{
		"help":     {"help", s.help},
		"login":    {"login <email> <password>", s.login},
		"logout":   {"logout", s.logout},
		"register": {"register <username> <email> <password> [admin]", s.register},
		"whoami":   {"whoami", s.whoami},
		"products": {"products [name=] [desc=] [min=] [max=]", s.products},
		"add":      {"add <product-id> [quantity]", s.add},
		"cart":     {"cart", s.showCart},
		"inc":      {"inc <product-id>", s.inc},
		"dec":      {"dec <product-id>", s.dec},
		"qty":      {"qty <product-id> <quantity>", s.qty},
		"rm":       {"rm <product-id>", s.rm},
		"checkout": {"checkout [payment-method-token]", s.checkout},
		"orders":   {"orders", s.orders},
		"notices":  {"notices", s.showNotices},
		"dismiss":  {"dismiss <index|all>", s.dismiss},
		"admin":    {"admin products|create|update|delete|orders|status ...", s.admin},
		"go":       {"go <view>", s.navigate},
		"quit":     {"quit", func(context.Context, []string) error { return errQuit }},
	}
	s.commands["exit"] = s.commands["quit"]
	return s
}

// Run reads commands until quit, end of input or ctx is done
func (s *Shell) Run(ctx context.Context) error {
	if err := s.Session.Refresh(ctx); err != nil {
		fmt.Fprintln(s.out, "Could not reach the shop, continuing anonymously.")
	}
	s.Nav.Start(ctx)
	s.Nav.Refresh(ctx)

	fmt.Fprintln(s.out, "Welcome to the storefront. Type \"help\" for commands.")
	fmt.Fprintln(s.out, s.Nav.Render())

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := s.Exec(ctx, scanner.Text()); errors.Is(err, errQuit) {
			fmt.Fprintln(s.out, "Bye.")
			return nil
		}
	}
}

// Exec runs one command line and prints any notices it raised
func (s *Shell) Exec(ctx context.Context, line string) error {
	args := splitArgs(line)
	if len(args) == 0 {
		return nil
	}

	cmd, ok := s.commands[strings.ToLower(args[0])]
	if !ok {
		fmt.Fprintf(s.out, "Unknown command %q. Type \"help\".\n", args[0])
		return nil
	}

	before := len(s.Notices.List())
	err := cmd.run(ctx, args[1:])
	if errors.Is(err, errQuit) {
		return err
	}

	raised := s.printNoticesFrom(before)
	var usage usageError
	switch {
	case errors.As(err, &usage):
		fmt.Fprintln(s.out, usage.Error())
	case err != nil && !raised:
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return err
}

func (s *Shell) help(context.Context, []string) error {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		if name != "exit" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(s.out, "  %s\n", s.commands[name].usage)
	}
	return nil
}

func (s *Shell) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError(s.commands["login"].usage)
	}
	if err := s.Session.Login(ctx, args[0], args[1]); err != nil {
		return err
	}
	s.Cart.Reset()
	s.Nav.Refresh(ctx)
	return s.show(ctx, ViewProducts)
}

func (s *Shell) logout(ctx context.Context, _ []string) error {
	s.Session.Logout(ctx)
	s.Cart.Reset()
	s.Nav.Refresh(ctx)
	return s.show(ctx, ViewLogin)
}

func (s *Shell) register(ctx context.Context, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return usageError(s.commands["register"].usage)
	}
	req := api.RegisterRequest{
		Username: args[0],
		Email:    args[1],
		Password: args[2],
		IsAdmin:  len(args) == 4 && args[3] == "admin",
	}
	if err := s.Session.Register(ctx, req); err != nil {
		return err
	}
	return s.show(ctx, ViewLogin)
}

func (s *Shell) whoami(context.Context, []string) error {
	u, ok := s.Session.Current()
	if !ok {
		fmt.Fprintln(s.out, "Not logged in.")
		return nil
	}
	role := "shopper"
	if u.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(s.out, "%s <%s> (%s)\n", u.Username, u.Email, role)
	return nil
}

func (s *Shell) products(ctx context.Context, args []string) error {
	opts := keyValues(args)
	filter := api.ProductFilter{
		Name:        opts["name"],
		Description: opts["desc"],
		MinPrice:    opts["min"],
		MaxPrice:    opts["max"],
	}
	if _, ok, err := s.Router.Go(string(ViewProducts)); err != nil || !ok {
		return s.guarded(ctx, err)
	}
	return s.listProducts(ctx, filter)
}

func (s *Shell) add(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usageError(s.commands["add"].usage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return usageError(s.commands["add"].usage)
	}
	qty := 1
	if len(args) == 2 {
		if qty, err = strconv.Atoi(args[1]); err != nil {
			return usageError(s.commands["add"].usage)
		}
	}
	if err := s.Cart.Add(ctx, id, qty); err != nil {
		return err
	}
	s.Notices.Success("Product added to cart")
	return nil
}

func (s *Shell) showCart(ctx context.Context, _ []string) error {
	s.Router.Go(string(ViewCart))
	return s.renderCart(ctx)
}

func (s *Shell) inc(ctx context.Context, args []string) error {
	return s.withID(args, "inc", func(id uint) error { return s.Cart.Increment(ctx, id) })
}

func (s *Shell) dec(ctx context.Context, args []string) error {
	return s.withID(args, "dec", func(id uint) error { return s.Cart.Decrement(ctx, id) })
}

func (s *Shell) rm(ctx context.Context, args []string) error {
	return s.withID(args, "rm", func(id uint) error { return s.Cart.Remove(ctx, id) })
}

func (s *Shell) qty(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError(s.commands["qty"].usage)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return usageError(s.commands["qty"].usage)
	}
	return s.withID(args[:1], "qty", func(id uint) error { return s.Cart.SetQuantity(ctx, id, n) })
}

// withID parses the product id argument, runs fn and shows the cart
func (s *Shell) withID(args []string, name string, fn func(uint) error) error {
	if len(args) != 1 {
		return usageError(s.commands[name].usage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return usageError(s.commands[name].usage)
	}
	if err := fn(id); err != nil {
		return err
	}
	return s.printCart()
}

func (s *Shell) checkout(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return usageError(s.commands["checkout"].usage)
	}
	if len(args) == 1 {
		s.Cards.Use(args[0])
	}
	return s.Cart.Checkout(ctx)
}

func (s *Shell) orders(ctx context.Context, _ []string) error {
	if _, ok, err := s.Router.Go(string(ViewOrders)); err != nil || !ok {
		return s.guarded(ctx, err)
	}
	return s.listOrders(ctx)
}

func (s *Shell) showNotices(context.Context, []string) error {
	list := s.Notices.List()
	if len(list) == 0 {
		fmt.Fprintln(s.out, "No notices.")
		return nil
	}
	for i, n := range list {
		fmt.Fprintf(s.out, "%d. [%s] %s\n", i, n.Kind, n.Text)
	}
	return nil
}

func (s *Shell) dismiss(_ context.Context, args []string) error {
	if len(args) != 1 {
		return usageError(s.commands["dismiss"].usage)
	}
	if args[0] == "all" {
		s.Notices.Clear()
		return nil
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return usageError(s.commands["dismiss"].usage)
	}
	return s.Notices.Dismiss(i)
}

func (s *Shell) navigate(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError(s.commands["go"].usage)
	}
	return s.show(ctx, View(args[0]))
}

// show navigates to v and renders what is there
func (s *Shell) show(ctx context.Context, v View) error {
	got, ok, err := s.Router.Go(string(v))
	if err != nil {
		return err
	}
	if !ok {
		return s.guarded(ctx, nil)
	}

	fmt.Fprintln(s.out, s.Nav.Render())
	switch got {
	case ViewHome:
		fmt.Fprintln(s.out, "Welcome to the storefront!")
	case ViewLogin:
		fmt.Fprintln(s.out, "Log in with: "+s.commands["login"].usage)
	case ViewRegister:
		fmt.Fprintln(s.out, "Sign up with: "+s.commands["register"].usage)
	case ViewProducts:
		return s.listProducts(ctx, api.ProductFilter{})
	case ViewCart:
		return s.renderCart(ctx)
	case ViewOrders:
		return s.listOrders(ctx)
	case ViewAdminProducts:
		return s.adminProducts(ctx)
	case ViewAdminOrders:
		return s.adminOrders(ctx)
	}
	return nil
}

func (s *Shell) guarded(_ context.Context, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Please log in first.")
	fmt.Fprintln(s.out, "Log in with: "+s.commands["login"].usage)
	return nil
}

func (s *Shell) listProducts(ctx context.Context, f api.ProductFilter) error {
	products, err := s.Catalog.Products(ctx, f)
	if err != nil {
		s.Notices.Danger(api.Message(err, "Failed to fetch products"))
		return err
	}
	if len(products) == 0 {
		fmt.Fprintln(s.out, "No products found.")
		return nil
	}

	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK\tDESCRIPTION")
	for _, p := range products {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.Name, money.Format(p.Price), p.Stock, p.Description)
	}
	return w.Flush()
}

func (s *Shell) renderCart(ctx context.Context) error {
	_, err := s.Cart.Load(ctx)
	if err != nil {
		if _, fresh := s.Cart.Snapshot(); !fresh {
			s.Notices.Danger("Failed to load cart")
		}
	}
	if perr := s.printCart(); perr != nil {
		return perr
	}
	return err
}

func (s *Shell) printCart() error {
	c, fresh := s.Cart.Snapshot()
	if c == nil {
		fmt.Fprintln(s.out, "Cart not loaded.")
		return nil
	}
	if c.IsEmpty() {
		fmt.Fprintln(s.out, "Your cart is empty.")
		return nil
	}

	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRODUCT\tPRICE\tQTY\tSUBTOTAL")
	for _, it := range c.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", it.Product.ID, it.Product.Name,
			money.Format(it.Product.Price), it.Quantity, money.Format(it.Subtotal))
	}
	fmt.Fprintf(w, "\t\t\tTotal\t%s\n", money.Format(c.Total))
	if err := w.Flush(); err != nil {
		return err
	}
	if !fresh {
		fmt.Fprintln(s.out, "(showing the last cart received; it may be out of date)")
	}
	return nil
}

func (s *Shell) listOrders(ctx context.Context) error {
	orders, err := s.Catalog.Orders(ctx)
	if err != nil {
		s.Notices.Danger(api.Message(err, "Failed to fetch orders"))
		return err
	}
	return s.printOrders(orders)
}

func (s *Shell) printOrders(orders []api.Order) error {
	if len(orders) == 0 {
		fmt.Fprintln(s.out, "No orders yet.")
		return nil
	}
	for _, o := range orders {
		who := ""
		if o.Username != "" {
			who = " by " + o.Username
		}
		fmt.Fprintf(s.out, "Order #%d%s, %s, %s, total %s\n",
			o.ID, who, o.Date.Format("2006-01-02 15:04"), o.Status, money.Format(o.Total))
		for _, it := range o.Items {
			fmt.Fprintf(s.out, "    %d x %s  %s\n", it.Quantity, it.Product.Name, money.Format(it.Subtotal))
		}
	}
	return nil
}

func (s *Shell) admin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError(s.commands["admin"].usage)
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "products":
		s.Router.Go(string(ViewAdminProducts))
		return s.adminProducts(ctx)
	case "orders":
		s.Router.Go(string(ViewAdminOrders))
		return s.adminOrders(ctx)
	case "create":
		in, err := productInput(keyValues(rest))
		if err != nil {
			return err
		}
		_, err = s.Admin.CreateProduct(ctx, in)
		return err
	case "update":
		if len(rest) < 2 {
			return usageError("admin update <id> [name=] [desc=] [price=] [stock=] [image=]")
		}
		id, err := parseID(rest[0])
		if err != nil {
			return usageError("admin update <id> [name=] [desc=] [price=] [stock=] [image=]")
		}
		in, err := productInput(keyValues(rest[1:]))
		if err != nil {
			return err
		}
		_, err = s.Admin.UpdateProduct(ctx, id, in)
		return err
	case "delete":
		if len(rest) != 1 {
			return usageError("admin delete <id>")
		}
		id, err := parseID(rest[0])
		if err != nil {
			return usageError("admin delete <id>")
		}
		return s.Admin.DeleteProduct(ctx, id)
	case "status":
		if len(rest) != 2 {
			return usageError("admin status <order-id> " + strings.Join(api.OrderStatuses, "|"))
		}
		id, err := parseID(rest[0])
		if err != nil {
			return usageError("admin status <order-id> " + strings.Join(api.OrderStatuses, "|"))
		}
		return s.Admin.UpdateOrderStatus(ctx, id, rest[1])
	default:
		return usageError(s.commands["admin"].usage)
	}
}

func (s *Shell) adminProducts(ctx context.Context) error {
	products, err := s.Admin.Products(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK")
	for _, p := range products {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", p.ID, p.Name, money.Format(p.Price), p.Stock)
	}
	return w.Flush()
}

func (s *Shell) adminOrders(ctx context.Context) error {
	orders, err := s.Admin.Orders(ctx)
	if err != nil {
		return err
	}
	return s.printOrders(orders)
}

// printNoticesFrom prints notices raised since the board held n of them
func (s *Shell) printNoticesFrom(n int) bool {
	list := s.Notices.List()
	if len(list) <= n {
		return false
	}
	for _, nt := range list[n:] {
		prefix := "✓"
		if nt.Kind == notice.KindDanger {
			prefix = "✗"
		}
		fmt.Fprintf(s.out, "%s %s\n", prefix, nt.Text)
	}
	return true
}

func productInput(kv map[string]string) (api.ProductInput, error) {
	var in api.ProductInput
	if v, ok := kv["name"]; ok {
		in.Name = &v
	}
	if v, ok := kv["desc"]; ok {
		in.Description = &v
	}
	if v, ok := kv["price"]; ok {
		p, err := decimal.NewFromString(v)
		if err != nil {
			return in, fmt.Errorf("invalid price %q", v)
		}
		in.Price = &p
	}
	if v, ok := kv["stock"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, fmt.Errorf("invalid stock %q", v)
		}
		in.Stock = &n
	}
	in.ImagePath = kv["image"]
	return in, nil
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

// keyValues reads key=value arguments; anything else is ignored
func keyValues(args []string) map[string]string {
	out := make(map[string]string, len(args))
	for _, a := range args {
		if k, v, ok := strings.Cut(a, "="); ok && k != "" {
			out[strings.ToLower(k)] = v
		}
	}
	return out
}

// splitArgs splits on whitespace, keeping double-quoted runs together
func splitArgs(line string) []string {
	var (
		args    []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t'):
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if started {
		args = append(args, cur.String())
	}
	return args
}
