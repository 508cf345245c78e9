// Package control implements the multi-domain automation engine:
// four control strategies (climate, watering, lighting, CO2), the
// action dispatcher, the safety supervisor and the loop scheduler.
//
// Strategies are pure functions from (room config, cached metrics) to
// a list of Actions. The Dispatcher turns actions into hardware
// commands through a fixed action-to-command table and keeps the
// per-(room, domain) Controller counters; the ControllerStore enforces
// single-writer-per-key on those records.
//
// The SafetySupervisor evaluates hard environmental limits every
// monitoring tick and drives the per-room emergency state machine.
// A critical breach appends an immutable EmergencyShutdown record and
// broadcasts one priority-10 emergency stop; warnings run a bounded
// safety protocol through the same dispatcher under the safety domain.
//
// The Engine schedules six independent periodic loops (the five
// domains plus sensor intake). Loops never synchronise; shared mutable
// state is confined to the ControllerStore and the supervisor's state
// map. Failures are contained per room and per action, so one broken
// actuator never stalls a tick.
package control
